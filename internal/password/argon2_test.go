package password

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// testParams はテスト全体を高速に保つための低コスト設定です。
func testParams() Params {
	return Params{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func TestHashVerifyRoundTrip(t *testing.T) {
	encoded, err := Hash("correct horse battery staple", testParams())
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", encoded)
	}

	if err := Verify(encoded, "correct horse battery staple"); err != nil {
		t.Fatalf("Verify returned error for correct password: %v", err)
	}
}

func TestVerifyWrongPassword(t *testing.T) {
	encoded, err := Hash("correct horse battery staple", testParams())
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	err = Verify(encoded, "wrong password")
	if !errors.Is(err, ErrMismatch) {
		t.Fatalf("Verify = %v, want ErrMismatch", err)
	}
}

func TestVerifyMalformedHashes(t *testing.T) {
	cases := []struct {
		name    string
		encoded string
	}{
		{"empty", ""},
		{"not a phc string", "plainly not a hash"},
		{"wrong algorithm", "$bcrypt$v=19$m=8192,t=1,p=1$c29tZXNhbHQxMjM0NTY$YW55dGhpbmdhdGFsbGhlcmUxMjM0NTY3ODkwMTI"},
		{"missing version", "$argon2id$m=8192,t=1,p=1$c29tZXNhbHQxMjM0NTY$YW55dGhpbmdhdGFsbGhlcmUxMjM0NTY3ODkwMTI"},
		{"unsupported version", "$argon2id$v=18$m=8192,t=1,p=1$c29tZXNhbHQxMjM0NTY$YW55dGhpbmdhdGFsbGhlcmUxMjM0NTY3ODkwMTI"},
		{"missing parameter", "$argon2id$v=19$m=8192,t=1$c29tZXNhbHQxMjM0NTY$YW55dGhpbmdhdGFsbGhlcmUxMjM0NTY3ODkwMTI"},
		{"zero time", "$argon2id$v=19$m=8192,t=0,p=1$c29tZXNhbHQxMjM0NTY$YW55dGhpbmdhdGFsbGhlcmUxMjM0NTY3ODkwMTI"},
		{"bad salt base64", "$argon2id$v=19$m=8192,t=1,p=1$!!!!$YW55dGhpbmdhdGFsbGhlcmUxMjM0NTY3ODkwMTI"},
		{"bad digest base64", "$argon2id$v=19$m=8192,t=1,p=1$c29tZXNhbHQxMjM0NTY$!!!!"},
		{"digest too short", "$argon2id$v=19$m=8192,t=1,p=1$c29tZXNhbHQxMjM0NTY$YWJj"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Verify(tc.encoded, "whatever")
			if !errors.Is(err, ErrMalformedHash) {
				t.Fatalf("Verify(%q) = %v, want ErrMalformedHash", tc.encoded, err)
			}
		})
	}
}

func TestVerifyAcceptsUnpaddedBase64(t *testing.T) {
	// 実運用のPHC文字列はパディング無しのbase64を使う。
	// 対になる平文を知らなくても、形式エラーではなく不一致として扱えること。
	const production = "$argon2id$v=19$m=15000,t=2,p=1$" +
		"gZiV/M1gPc22ElAH/Jh1Hw$" +
		"CWOrkoo7oJBQ/iyh7uJ0LO2aLEfrHwTWllSAxT0zRno"

	err := Verify(production, "definitely not the password")
	if !errors.Is(err, ErrMismatch) {
		t.Fatalf("Verify = %v, want ErrMismatch", err)
	}
}

func TestPoolVerify(t *testing.T) {
	encoded, err := Hash("pool password", testParams())
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	pool := NewPool(2)

	if err := pool.Verify(context.Background(), encoded, "pool password"); err != nil {
		t.Fatalf("pool.Verify returned error for correct password: %v", err)
	}
	if err := pool.Verify(context.Background(), encoded, "nope"); !errors.Is(err, ErrMismatch) {
		t.Fatalf("pool.Verify = %v, want ErrMismatch", err)
	}
}

func TestPoolVerifyConcurrent(t *testing.T) {
	encoded, err := Hash("pool password", testParams())
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	pool := NewPool(2)
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			results <- pool.Verify(context.Background(), encoded, "pool password")
		}()
	}
	for i := 0; i < 8; i++ {
		if err := <-results; err != nil {
			t.Fatalf("concurrent pool.Verify returned error: %v", err)
		}
	}
}

func TestPoolVerifyCancelledBeforeDispatch(t *testing.T) {
	encoded, err := Hash("pool password", testParams())
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := NewPool(1)
	if err := pool.Verify(ctx, encoded, "pool password"); !errors.Is(err, context.Canceled) {
		t.Fatalf("pool.Verify = %v, want context.Canceled", err)
	}
}
