package bootstrap

import (
	"log/slog"

	"github.com/filegate/filegate/internal/data/cryptoutil"
)

// CreateCipher derives the credential cipher from the configured server
// secrets. With no usable secret material it falls back to the degraded
// reversible encoding so policy writes keep working, and logs loudly.
//
//nolint:ireturn // Returning the interface is intentional for cipher injection.
func CreateCipher(secrets []string, logger *slog.Logger) cryptoutil.Encryptor {
	if logger == nil {
		logger = slog.Default()
	}

	key, err := cryptoutil.DeriveKey(secrets)
	if err != nil {
		logger.Warn("no server secrets configured, stored passwords will NOT be encrypted", "error", err)
		return cryptoutil.DegradedEncryptor{}
	}

	enc, err := cryptoutil.NewAESGCMEncryptor(key)
	if err != nil {
		logger.Warn("failed to create cipher, stored passwords will NOT be encrypted", "error", err)
		return cryptoutil.DegradedEncryptor{}
	}
	return enc
}
