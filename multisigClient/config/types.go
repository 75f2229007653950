package config

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Cluster names accepted by --cluster.
const (
	ClusterDevnet      = "devnet"
	ClusterTestnet     = "testnet"
	ClusterMainnetBeta = "mainnet-beta"
	ClusterLocalnet    = "localnet"
)

// Output formats accepted by --output.
const (
	OutputText = "text"
	OutputJSON = "json"
)

type Config struct {
	// Log Config
	LogLevel   int    `json:"log_level" mapstructure:"log_level"`     // e.g., 0 = debug, 1 = info, etc.
	LogFormat  string `json:"log_format" mapstructure:"log_format"`   // "json" or "console"
	LogSampler bool   `json:"log_sampler" mapstructure:"log_sampler"` // if true, samples logs (e.g., 1 in 5)

	// Node Config
	NodeHome string `json:"node_home" mapstructure:"node_home"` // Home directory (default: ~/.msig)

	// Network
	Cluster               string `json:"cluster" mapstructure:"cluster"`                                 // devnet | testnet | mainnet-beta | localnet
	RPCURL                string `json:"rpc_url,omitempty" mapstructure:"rpc_url"`                       // overrides the cluster endpoint
	Commitment            string `json:"commitment" mapstructure:"commitment"`                           // processed | confirmed | finalized
	ConfirmTimeoutSeconds int    `json:"confirm_timeout_seconds" mapstructure:"confirm_timeout_seconds"` // how long submit waits for confirmation

	// Multisig program
	ProgramID   string `json:"program_id" mapstructure:"program_id"`
	AccountSize uint64 `json:"account_size" mapstructure:"account_size"` // space for multisig and proposal accounts

	// Signer selection
	PrivateKey    string `json:"private_key,omitempty" mapstructure:"private_key"` // key file path
	Ledger        bool   `json:"ledger" mapstructure:"ledger"`
	AccountNumber uint32 `json:"account_number" mapstructure:"account_number"` // m/44'/501'/<n>'
	Signer        string `json:"signer,omitempty" mapstructure:"signer"`       // payer pubkey for builds without key material

	// Durable nonce
	NonceAccount   string `json:"nonce_account,omitempty" mapstructure:"nonce_account"`
	Nonce          string `json:"nonce,omitempty" mapstructure:"nonce"`                     // current nonce value, skips the RPC read
	NonceAuthority string `json:"nonce_authority,omitempty" mapstructure:"nonce_authority"` // defaults to the payer

	// Behaviour
	Submit bool   `json:"submit" mapstructure:"submit"`
	Output string `json:"output" mapstructure:"output"` // text | json
}

// clusterEndpoints maps cluster names to their public RPC endpoints.
var clusterEndpoints = map[string]string{
	ClusterDevnet:      rpc.DevNet.RPC,
	ClusterTestnet:     rpc.TestNet.RPC,
	ClusterMainnetBeta: rpc.MainNetBeta.RPC,
	ClusterLocalnet:    rpc.LocalNet.RPC,
}

// Endpoint returns the RPC URL to dial: the explicit override when set, otherwise the cluster default.
func (c *Config) Endpoint() string {
	if c.RPCURL != "" {
		return c.RPCURL
	}
	return clusterEndpoints[c.Cluster]
}

// Program returns the multisig program id.
func (c *Config) Program() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(c.ProgramID)
}

// CommitmentType returns the commitment as the rpc package type.
func (c *Config) CommitmentType() rpc.CommitmentType {
	return rpc.CommitmentType(c.Commitment)
}

// Persistent returns a copy of cfg without the fields that only make sense for a single
// invocation: the payer, the nonce triple and submit.
func (c *Config) Persistent() *Config {
	out := *c
	out.Signer = ""
	out.NonceAccount = ""
	out.Nonce = ""
	out.NonceAuthority = ""
	out.Submit = false
	return &out
}
