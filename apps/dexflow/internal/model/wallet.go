package model

// Wallet is read-only from the pipeline's perspective. The private key stays
// encrypted until the moment of signing, where a KeyVault collaborator
// decrypts it.
type Wallet struct {
	WalletID            string `db:"wallet_id"`
	Address             string `db:"address"`
	EncryptedPrivateKey string `db:"encrypted_private_key"`
	ChainID             int64  `db:"chain_id"`
	UserID              string `db:"user_id"`
}
