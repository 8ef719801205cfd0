package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/Theoverflow/zero2prod/internal/password"
)

type fakeStore struct {
	users     map[string]StoredCredentials
	usernames map[uuid.UUID]string
	err       error
}

func (s *fakeStore) Lookup(_ context.Context, username string) (*StoredCredentials, error) {
	if s.err != nil {
		return nil, s.err
	}
	stored, ok := s.users[username]
	if !ok {
		return nil, nil
	}
	return &stored, nil
}

func (s *fakeStore) Username(_ context.Context, userID uuid.UUID) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	name, ok := s.usernames[userID]
	if !ok {
		return "", errors.New("no such user")
	}
	return name, nil
}

// recordingHasher は検証の呼び出し回数と渡されたハッシュを記録します。
type recordingHasher struct {
	calls  int
	hashes []string
	result error
}

func (h *recordingHasher) Verify(_ context.Context, encodedHash string, _ string) error {
	h.calls++
	h.hashes = append(h.hashes, encodedHash)
	return h.result
}

func TestValidateKnownUserCorrectPassword(t *testing.T) {
	userID := uuid.New()
	store := &fakeStore{users: map[string]StoredCredentials{
		"admin": {UserID: userID, PasswordHash: "$argon2id$..."},
	}}
	hasher := &recordingHasher{result: nil}

	validator := NewValidator(store, hasher)
	got, err := validator.Validate(context.Background(), Credentials{Username: "admin", Password: "right"})
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if got != userID {
		t.Fatalf("Validate = %s, want %s", got, userID)
	}
	if hasher.calls != 1 {
		t.Fatalf("hash verification ran %d times, want 1", hasher.calls)
	}
}

func TestValidateKnownUserWrongPassword(t *testing.T) {
	store := &fakeStore{users: map[string]StoredCredentials{
		"admin": {UserID: uuid.New(), PasswordHash: "$argon2id$..."},
	}}
	hasher := &recordingHasher{result: password.ErrMismatch}

	validator := NewValidator(store, hasher)
	_, err := validator.Validate(context.Background(), Credentials{Username: "admin", Password: "wrong"})
	if !IsInvalidCredentials(err) {
		t.Fatalf("Validate = %v, want invalid credentials", err)
	}
}

func TestValidateUnknownUserStillVerifiesOnce(t *testing.T) {
	store := &fakeStore{users: map[string]StoredCredentials{}}
	hasher := &recordingHasher{result: password.ErrMismatch}

	validator := NewValidator(store, hasher)
	_, err := validator.Validate(context.Background(), Credentials{Username: "ghost", Password: "whatever"})
	if !IsInvalidCredentials(err) {
		t.Fatalf("Validate = %v, want invalid credentials", err)
	}

	// 未知のユーザーでも、既知のユーザーと同じく検証をちょうど1回実行する
	if hasher.calls != 1 {
		t.Fatalf("hash verification ran %d times, want 1", hasher.calls)
	}
	if hasher.hashes[0] != fallbackPasswordHash {
		t.Fatalf("verification used %q, want the fallback hash", hasher.hashes[0])
	}
}

func TestValidateUnknownUserNeverAuthenticatedOnDummyMatch(t *testing.T) {
	store := &fakeStore{users: map[string]StoredCredentials{}}
	// ダミーハッシュが候補パスワードと一致してしまった状況を強制する
	hasher := &recordingHasher{result: nil}

	validator := NewValidator(store, hasher)
	got, err := validator.Validate(context.Background(), Credentials{Username: "ghost", Password: "lucky"})
	if !IsInvalidCredentials(err) {
		t.Fatalf("Validate = %v, want invalid credentials", err)
	}
	if got != uuid.Nil {
		t.Fatalf("Validate returned user id %s for a non-existing user", got)
	}
}

func TestValidateStoreFailureIsUnexpected(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	hasher := &recordingHasher{}

	validator := NewValidator(store, hasher)
	_, err := validator.Validate(context.Background(), Credentials{Username: "admin", Password: "pw"})

	var authErr *Error
	if !errors.As(err, &authErr) || authErr.Kind != KindUnexpected {
		t.Fatalf("Validate = %v, want unexpected error", err)
	}
	if IsInvalidCredentials(err) {
		t.Fatalf("store failure must not be classified as invalid credentials")
	}
}

func TestValidateMalformedStoredHashIsUnexpected(t *testing.T) {
	store := &fakeStore{users: map[string]StoredCredentials{
		"admin": {UserID: uuid.New(), PasswordHash: "not a phc string"},
	}}
	hasher := &recordingHasher{result: password.ErrMalformedHash}

	validator := NewValidator(store, hasher)
	_, err := validator.Validate(context.Background(), Credentials{Username: "admin", Password: "pw"})

	var authErr *Error
	if !errors.As(err, &authErr) || authErr.Kind != KindUnexpected {
		t.Fatalf("Validate = %v, want unexpected error", err)
	}
}

func TestValidateWithRealHasher(t *testing.T) {
	params := password.Params{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
	encoded, err := password.Hash("everythinghastostartsomewhere", params)
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	userID := uuid.New()
	store := &fakeStore{users: map[string]StoredCredentials{
		"admin": {UserID: userID, PasswordHash: encoded},
	}}
	validator := NewValidator(store, password.NewPool(2))

	got, err := validator.Validate(context.Background(), Credentials{
		Username: "admin",
		Password: "everythinghastostartsomewhere",
	})
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if got != userID {
		t.Fatalf("Validate = %s, want %s", got, userID)
	}

	_, err = validator.Validate(context.Background(), Credentials{
		Username: "admin",
		Password: "everythinghastostartsomewhere!",
	})
	if !IsInvalidCredentials(err) {
		t.Fatalf("Validate = %v, want invalid credentials", err)
	}
}
