package constant

import (
	"os"

	"github.com/gagliardetto/solana-go"
)

// <NodeDir>/                    (e.g., /home/operator/.msig)
// └── config/
//	└── msig_config.json

const (
	NodeDir = ".msig"

	ConfigSubdir   = "config"
	ConfigFileName = "msig_config.json"

	// EnvPrefix is prepended to every config key looked up in the environment (MSIG_RPC_URL, ...).
	EnvPrefix = "MSIG"
)

var DefaultNodeHome = os.ExpandEnv("$HOME/") + NodeDir

const (
	// DefaultMultisigProgramID is the devnet deployment of the coral multisig program.
	DefaultMultisigProgramID = "AAHT26ecV3FEeFmL2gDZW6FfEqjPkghHbAkNZGqwT8Ww"

	// DefaultAccountSize is the space allocated for multisig and proposal records.
	DefaultAccountSize = 500
)

// TokenProgramID is the SPL token program every proposed transfer targets.
var TokenProgramID = solana.TokenProgramID
