// Package password は Argon2id によるパスワードハッシュの生成と検証を提供します。
//
// ハッシュは PHC 文字列形式（$argon2id$v=19$m=...,t=...,p=...$salt$hash）で
// 自己記述的に保存されるため、検証時のパラメータはレコード側から復元されます。
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const algorithmID = "argon2id"

var (
	// ErrMalformedHash は保存されたハッシュ文字列が PHC 形式として解釈できない場合に返されます。
	ErrMalformedHash = errors.New("malformed password hash")

	// ErrMismatch は候補パスワードが保存されたハッシュと一致しない場合に返されます。
	ErrMismatch = errors.New("password mismatch")
)

// Params は新規ハッシュ生成時の Argon2id パラメータです。
// 検証には使用されません（検証パラメータはハッシュ文字列に埋め込まれています）。
type Params struct {
	Memory      uint32 // メモリコスト（KiB）
	Time        uint32 // 反復回数
	Parallelism uint8  // 並列度
	SaltLength  uint32 // ソルト長（バイト）
	KeyLength   uint32 // 導出鍵長（バイト）
}

// DefaultParams は本番運用向けの既定パラメータを返します。
func DefaultParams() Params {
	return Params{
		Memory:      15000,
		Time:        2,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

type parsedHash struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	digest      []byte
}

// Hash はパスワードを Argon2id でハッシュ化し、PHC 文字列で返します。
func Hash(password string, params Params) (string, error) {
	if params.SaltLength < 8 {
		return "", fmt.Errorf("salt length must be >= 8, got %d", params.SaltLength)
	}
	if params.KeyLength < 16 {
		return "", fmt.Errorf("key length must be >= 16, got %d", params.KeyLength)
	}

	salt := make([]byte, params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	digest := argon2.IDKey(
		[]byte(password),
		salt,
		params.Time,
		params.Memory,
		params.Parallelism,
		params.KeyLength,
	)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		params.Memory,
		params.Time,
		params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	), nil
}

// Verify は候補パスワードを保存済みハッシュと照合します。
// ダイジェストの比較は定数時間で行います。
func Verify(encodedHash string, candidate string) error {
	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return err
	}

	computed := argon2.IDKey(
		[]byte(candidate),
		parsed.salt,
		parsed.time,
		parsed.memory,
		parsed.parallelism,
		uint32(len(parsed.digest)),
	)

	if subtle.ConstantTimeCompare(computed, parsed.digest) != 1 {
		return ErrMismatch
	}
	return nil
}

func parsePHC(encodedHash string) (*parsedHash, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, fmt.Errorf("%w: expected 5 $-separated sections", ErrMalformedHash)
	}

	if parts[1] != algorithmID {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrMalformedHash, parts[1])
	}

	if !strings.HasPrefix(parts[2], "v=") {
		return nil, fmt.Errorf("%w: missing version", ErrMalformedHash)
	}
	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid version", ErrMalformedHash)
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedHash, version)
	}

	params, err := parseParams(parts[3])
	if err != nil {
		return nil, err
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid salt encoding", ErrMalformedHash)
	}
	if len(salt) < 8 {
		return nil, fmt.Errorf("%w: salt too short", ErrMalformedHash)
	}

	digest, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid digest encoding", ErrMalformedHash)
	}
	if len(digest) < 16 {
		return nil, fmt.Errorf("%w: digest too short", ErrMalformedHash)
	}

	return &parsedHash{
		memory:      params.memory,
		time:        params.time,
		parallelism: params.parallelism,
		salt:        salt,
		digest:      digest,
	}, nil
}

type parsedParams struct {
	memory      uint32
	time        uint32
	parallelism uint8
}

func parseParams(section string) (*parsedParams, error) {
	pairs := strings.Split(section, ",")
	if len(pairs) != 3 {
		return nil, fmt.Errorf("%w: expected m,t,p parameters", ErrMalformedHash)
	}

	var (
		params                             parsedParams
		memorySet, timeSet, parallelismSet bool
	)

	for _, pair := range pairs {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("%w: invalid parameter entry %q", ErrMalformedHash, pair)
		}

		switch kv[0] {
		case "m":
			v, err := strconv.ParseUint(kv[1], 10, 32)
			if err != nil || v == 0 {
				return nil, fmt.Errorf("%w: invalid memory parameter", ErrMalformedHash)
			}
			params.memory = uint32(v)
			memorySet = true
		case "t":
			v, err := strconv.ParseUint(kv[1], 10, 32)
			if err != nil || v == 0 {
				return nil, fmt.Errorf("%w: invalid time parameter", ErrMalformedHash)
			}
			params.time = uint32(v)
			timeSet = true
		case "p":
			v, err := strconv.ParseUint(kv[1], 10, 8)
			if err != nil || v == 0 {
				return nil, fmt.Errorf("%w: invalid parallelism parameter", ErrMalformedHash)
			}
			params.parallelism = uint8(v)
			parallelismSet = true
		default:
			return nil, fmt.Errorf("%w: unknown parameter %q", ErrMalformedHash, kv[0])
		}
	}

	if !memorySet || !timeSet || !parallelismSet {
		return nil, fmt.Errorf("%w: missing parameters", ErrMalformedHash)
	}

	return &params, nil
}
