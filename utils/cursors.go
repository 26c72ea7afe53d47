package utils

import (
	"encoding/json"
	"errors"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/xxtea/xxtea-go/xxtea"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// EncryptCursor encrypts the cursor
func EncryptCursor(input []types.FieldValue, key string) (string, error) {
	// Serialize the input to JSON
	jsonData, err := json.Marshal(input)
	if err != nil {
		return "", err
	}

	// Encrypt the JSON data using the XXTEA algorithm
	encryptedBytes := xxtea.Encrypt(jsonData, []byte(key))

	// Encode the encrypted bytes to a base58 string
	return base58.Encode(encryptedBytes), nil
}

// DecryptCursor decrypts the cursor
func DecryptCursor(input string, key string) ([]types.FieldValue, error) {
	decoded := base58.Decode(input)
	if len(decoded) == 0 {
		return nil, ErrInvalidCursor
	}

	// xxtea returns nil when the ciphertext was not produced with this key
	decryptedBytes := xxtea.Decrypt(decoded, []byte(key))
	if decryptedBytes == nil {
		return nil, ErrInvalidCursor
	}

	var arr []types.FieldValue
	if err := json.Unmarshal(decryptedBytes, &arr); err != nil {
		return nil, ErrInvalidCursor
	}

	return arr, nil
}
