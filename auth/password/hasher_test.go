package password

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func fastBcrypt() *BcryptHasher { return NewBcryptHasher(WithCost(bcrypt.MinCost)) }

func fastArgon2() *Argon2Hasher {
	return NewArgon2Hasher(WithArgon2Memory(8*1024), WithArgon2Threads(1))
}

func TestHashers_RoundTrip(t *testing.T) {
	hashers := map[string]Hasher{
		"bcrypt":   fastBcrypt(),
		"argon2id": fastArgon2(),
	}
	for name, h := range hashers {
		t.Run(name, func(t *testing.T) {
			hash, err := h.Hash("longpassword1")
			if err != nil {
				t.Fatalf("Hash: %v", err)
			}
			if strings.Contains(hash, "longpassword1") {
				t.Fatal("hash must not contain the secret")
			}

			ok, err := h.Verify("longpassword1", hash)
			if err != nil || !ok {
				t.Errorf("Verify(correct) = %v, %v; want true, nil", ok, err)
			}

			ok, err = h.Verify("wrongpassword", hash)
			if err != nil {
				t.Errorf("mismatch must not error, got %v", err)
			}
			if ok {
				t.Error("Verify(wrong) = true")
			}
		})
	}
}

func TestHashers_FreshSaltPerCall(t *testing.T) {
	for name, h := range map[string]Hasher{"bcrypt": fastBcrypt(), "argon2id": fastArgon2()} {
		t.Run(name, func(t *testing.T) {
			a, _ := h.Hash("same-password")
			b, _ := h.Hash("same-password")
			if a == b {
				t.Error("two hashes of the same password should differ")
			}
		})
	}
}

func TestHashers_MalformedHash(t *testing.T) {
	tests := []struct {
		name   string
		hasher Hasher
		hash   string
	}{
		{"bcrypt garbage", fastBcrypt(), "not-a-hash"},
		{"bcrypt truncated", fastBcrypt(), "$2a$10$abc"},
		{"argon2 wrong parts", fastArgon2(), "$argon2id$v=19$m=1"},
		{"argon2 bad params", fastArgon2(), "$argon2id$v=19$m=x,t=1,p=1$c2FsdA$ZGlnZXN0"},
		{"argon2 bad base64", fastArgon2(), "$argon2id$v=19$m=1024,t=1,p=1$!!!$ZGlnZXN0"},
		{"argon2 wrong version", fastArgon2(), "$argon2id$v=16$m=1024,t=1,p=1$c2FsdA$ZGlnZXN0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := tt.hasher.Verify("whatever1", tt.hash)
			if ok {
				t.Error("malformed hash must not verify")
			}
			if !errors.Is(err, ErrMalformedHash) {
				t.Errorf("expected ErrMalformedHash, got %v", err)
			}
		})
	}
}

func TestBcrypt_DefaultCost(t *testing.T) {
	hash, err := NewBcryptHasher().Hash("longpassword1")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("Cost: %v", err)
	}
	if cost < MinBcryptCost {
		t.Errorf("expected cost >= %d, got %d", MinBcryptCost, cost)
	}
}

func TestBcrypt_InputLimits(t *testing.T) {
	h := fastBcrypt()
	if _, err := h.Hash(""); !errors.Is(err, ErrEmptyPassword) {
		t.Errorf("expected ErrEmptyPassword, got %v", err)
	}
	if _, err := h.Hash(strings.Repeat("a", 73)); !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestNewHasher_VerifiesBothEncodings(t *testing.T) {
	bcryptHash, _ := fastBcrypt().Hash("longpassword1")
	argonHash, _ := fastArgon2().Hash("longpassword1")

	h := NewHasher(Config{Algorithm: AlgorithmArgon2id, Argon2Memory: 8 * 1024, Argon2Threads: 1})
	for name, hash := range map[string]string{"bcrypt": bcryptHash, "argon2id": argonHash} {
		ok, err := h.Verify("longpassword1", hash)
		if err != nil || !ok {
			t.Errorf("%s: Verify = %v, %v", name, ok, err)
		}
	}
	if !NeedsRehash(h, bcryptHash) {
		t.Error("bcrypt hash should need rehash when argon2id is primary")
	}
	if NeedsRehash(h, argonHash) {
		t.Error("argon2id hash should not need rehash")
	}
	if _, err := h.Verify("x", "plaintext"); !errors.Is(err, ErrMalformedHash) {
		t.Errorf("expected ErrMalformedHash for unknown encoding, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"argon2id", Config{Algorithm: AlgorithmArgon2id}, false},
		{"low cost", Config{BcryptCost: 10}, true},
		{"unknown algorithm", Config{Algorithm: "md5"}, true},
		{"short min length", Config{MinLength: 4}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.ApplyDefaults()
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
