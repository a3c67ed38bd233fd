// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"
)

const sealedPrefix = "enc::"

// sealer encrypts credential-bearing columns at rest with AES-GCM.
type sealer struct {
	aead cipher.AEAD
}

func newSealer(key []byte) (*sealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "invalid encryption key")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &sealer{aead: aead}, nil
}

// sealRaw encrypts the given bytes when a sealer is configured,
// returning them unchanged otherwise.
func (sqlStore *SQLStore) sealRaw(plain []byte) ([]byte, error) {
	if sqlStore.sealer == nil || len(plain) == 0 {
		return plain, nil
	}

	nonce := make([]byte, sqlStore.sealer.aead.NonceSize())
	_, err := rand.Read(nonce)
	if err != nil {
		return nil, err
	}

	sealed := sqlStore.sealer.aead.Seal(nonce, nonce, plain, nil)
	return []byte(sealedPrefix + base64.StdEncoding.EncodeToString(sealed)), nil
}

// openRaw decrypts bytes written by sealRaw. Plaintext rows written
// before a key was configured pass through unchanged.
func (sqlStore *SQLStore) openRaw(data []byte) ([]byte, error) {
	if !strings.HasPrefix(string(data), sealedPrefix) {
		return data, nil
	}
	if sqlStore.sealer == nil {
		return nil, errors.New("row is sealed but no encryption key is configured")
	}

	sealed, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(string(data), sealedPrefix))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode sealed row")
	}
	nonceSize := sqlStore.sealer.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, errors.New("sealed row is truncated")
	}

	plain, err := sqlStore.sealer.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to unseal row")
	}
	return plain, nil
}
