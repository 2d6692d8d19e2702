package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/hakulabs/mintd/cmd"
	"github.com/hakulabs/mintd/logconfig"
)

const (
	ENV_CONFIG_FILE_PATH = "MINTD_CONFIG"
)

func main() {
	logconfig.ConfigProductionLogger()

	// Tool to read environment variables
	viper.AutomaticEnv()

	// Accessing an environment variable of configuration file location.
	_config_file := viper.GetString(ENV_CONFIG_FILE_PATH)
	fmt.Printf("Mint server configuration file = %s\n", _config_file)

	// See if file exists
	if !cmd.FileExists(_config_file) {
		fmt.Printf("Mint server configuration file not found: %s\n", _config_file)
		return
	}

	// Read from config file.
	success := initializeViper(_config_file)
	if !success {
		return
	}

	// Make the configuration
	msc := PrepareMintServerConfig()
	if msc == nil {
		fmt.Printf("Error loading mint server configuration\n")
		return
	}

	fmt.Println("Starting mint server... press Ctrl+C to kill the server")
	// Start server and block.
	cmd.StartMintServerAndWait(msc)
}

func initializeViper(filePath string) bool {
	viper.SetConfigFile(filePath)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("Error reading configuration file, %s", err)
		return false
	}
	return true
}

// PrepareMintServerConfig reads configuration variables and returns a MintServerConfig.
func PrepareMintServerConfig() *cmd.MintServerConfig {
	return &cmd.MintServerConfig{
		// eth side
		EthRpcUrl:         viper.GetString("ETH_RPC_URL"),
		MinterAccountPriv: viper.GetString("MINTER_ACCOUNT_PRIV"),
		TokenContractAddr: viper.GetString("TOKEN_CONTRACT_ADDR"),
		NFTContractAddr:   viper.GetString("NFT_CONTRACT_ADDR"),
		StartBlock:        viper.GetUint64("START_BLOCK"),
		// state side
		DbFilePath: viper.GetString("DB_FILE_PATH"),
		// Http side
		HttpIp:   viper.GetString("HTTP_IP"),
		HttpPort: viper.GetString("HTTP_PORT"),
	}
}
