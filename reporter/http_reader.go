// Reader is a testing facility to read the output of a http reporter.

package reporter

import (
	"bytes"
	"io"
	"net/http"
)

type HttpReader struct {
	serverIP   string // listen ip
	serverPort string // listen port
}

func NewHttpReader(serverIP string, serverPort string) *HttpReader {
	return &HttpReader{
		serverIP:   serverIP,
		serverPort: serverPort,
	}
}

func (hr *HttpReader) base() string {
	return "http://" + hr.serverIP + ":" + hr.serverPort
}

func (hr *HttpReader) GetHello() (string, error) {
	return hr.get(ROUTE_HELLO)
}

func (hr *HttpReader) GetMintStatus(nftID string) (string, error) {
	return hr.get(ROUTE_MINT_STATUS + "?nft_id=" + nftID)
}

func (hr *HttpReader) GetMinted() (string, error) {
	return hr.get(ROUTE_MINTED)
}

func (hr *HttpReader) PostMint(body []byte) (string, error) {
	return hr.post(ROUTE_MINT, body)
}

func (hr *HttpReader) PostMintFailed(body []byte) (string, error) {
	return hr.post(ROUTE_MINT_FAILED, body)
}

func (hr *HttpReader) get(route string) (string, error) {
	resp, err := http.Get(hr.base() + route)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	return string(body), nil
}

func (hr *HttpReader) post(route string, reqBody []byte) (string, error) {
	resp, err := http.Post(hr.base()+route, "application/json", bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	return string(body), nil
}
