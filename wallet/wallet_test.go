package wallet

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hardhat 默认账户
const (
	hardhatKey0 = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	hardhatKey1 = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
)

var (
	hardhatAddr0 = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	hardhatAddr1 = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

func TestNewWalletFromPrivateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		want    common.Address
		wantErr bool
	}{
		{name: "with 0x prefix", key: hardhatKey0, want: hardhatAddr0},
		{name: "without prefix", key: hardhatKey1, want: hardhatAddr1},
		{name: "short key", key: "0x1234", wantErr: true},
		{name: "not hex", key: "0xzz", wantErr: true},
		{name: "zero key", key: "0x0000000000000000000000000000000000000000000000000000000000000000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWalletFromPrivateKey(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, w.Address())
		})
	}
}

func TestSignMessage_RecoversAddress(t *testing.T) {
	w, err := NewWalletFromPrivateKey(hardhatKey0)
	require.NoError(t, err)

	digest := ethcrypto.Keccak256([]byte("toggle()"))
	sig, err := w.SignMessage(digest)
	require.NoError(t, err)
	require.Len(t, sig, SignatureLength)
	assert.Contains(t, []byte{27, 28}, sig[64])

	recoverable := append([]byte(nil), sig...)
	recoverable[64] -= 27
	pub, err := ethcrypto.SigToPub(accounts.TextHash(digest), recoverable)
	require.NoError(t, err)
	assert.Equal(t, hardhatAddr0, ethcrypto.PubkeyToAddress(*pub))
}

func TestSignMessage_Deterministic(t *testing.T) {
	w, err := NewWallet()
	require.NoError(t, err)

	msg := ethcrypto.Keccak256([]byte("digest"))
	a, err := w.SignMessage(msg)
	require.NoError(t, err)
	b, err := w.SignMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSignHash_RejectsWrongLength(t *testing.T) {
	w, err := NewWallet()
	require.NoError(t, err)

	_, err = w.SignHash([]byte("short"))
	assert.Error(t, err)
}

func TestSign_ContextCancelled(t *testing.T) {
	w, err := NewWallet()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = w.Sign(ctx, make([]byte, 32))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAsSigners(t *testing.T) {
	w0, err := NewWalletFromPrivateKey(hardhatKey0)
	require.NoError(t, err)
	w1, err := NewWalletFromPrivateKey(hardhatKey1)
	require.NoError(t, err)

	signers := AsSigners(w0, w1)
	require.Len(t, signers, 2)
	assert.Equal(t, hardhatAddr0, signers[0].Address())
	assert.Equal(t, hardhatAddr1, signers[1].Address())
}
