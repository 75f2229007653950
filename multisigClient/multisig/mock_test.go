package multisig

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/mock"

	"github.com/pushchain/svm-multisig/multisigClient/chains/svm"
)

// MockChainReader is a mock implementation of ChainReader
type MockChainReader struct {
	mock.Mock
}

func (m *MockChainReader) GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error) {
	args := m.Called(ctx, size)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockChainReader) GetTokenAccount(ctx context.Context, what string, address solana.PublicKey) (*svm.TokenAccount, error) {
	args := m.Called(ctx, what, address)
	acct, _ := args.Get(0).(*svm.TokenAccount)
	return acct, args.Error(1)
}

func (m *MockChainReader) GetAccountData(ctx context.Context, what string, address solana.PublicKey) (*svm.AccountData, error) {
	args := m.Called(ctx, what, address)
	acct, _ := args.Get(0).(*svm.AccountData)
	return acct, args.Error(1)
}

// methods returns the mocked method names in call order.
func (m *MockChainReader) methods() []string {
	out := make([]string, 0, len(m.Calls))
	for _, c := range m.Calls {
		out = append(out, c.Method)
	}
	return out
}
