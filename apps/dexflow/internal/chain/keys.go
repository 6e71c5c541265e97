package chain

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"dexflow/apps/dexflow/internal/model"
)

// KeyVault turns a wallet's opaque encrypted key material into a usable
// signing key. Decryption itself is an external collaborator's concern.
type KeyVault interface {
	UnlockKey(wallet *model.Wallet) (*ecdsa.PrivateKey, error)
}

// DecryptFunc decrypts the stored ciphertext into a hex-encoded private key.
type DecryptFunc func(ciphertext string) (string, error)

// VaultKeyVault decrypts via the injected collaborator and parses the
// resulting hex key.
type VaultKeyVault struct {
	decrypt DecryptFunc
}

func NewKeyVault(decrypt DecryptFunc) *VaultKeyVault {
	return &VaultKeyVault{decrypt: decrypt}
}

func (v *VaultKeyVault) UnlockKey(wallet *model.Wallet) (*ecdsa.PrivateKey, error) {
	keyHex, err := v.decrypt(wallet.EncryptedPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt key for wallet %s: %w", wallet.WalletID, err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key for wallet %s: %w", wallet.WalletID, err)
	}
	return key, nil
}
