package totp

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"time"

	"github.com/rotisserie/eris"
)

// StepSeconds is the width of one Steam Guard code window.
const StepSeconds = 30

// CodeLength is the number of characters in a Steam Guard code.
const CodeLength = 5

// Range of possible chars for auth code.
//
//goland:noinspection SpellCheckingInspection
const codeChars = "23456789BCDFGHJKMNPQRTVWXY"

type State struct {
	sharedSecret []byte
}

func NewState(sharedSecret string) (*State, error) {
	sharedKey, err := base64.StdEncoding.DecodeString(sharedSecret)
	if err != nil {
		return nil, eris.Wrap(err, "error decoding shared secret")
	}

	if len(sharedKey) == 0 {
		return nil, eris.New("shared secret is empty")
	}

	return &State{sharedSecret: sharedKey}, nil
}

func Time(offset int64) time.Time {
	return time.Now().UTC().Add(time.Second * time.Duration(offset))
}

// GenerateCode derives the Steam Guard code for the base64 shared secret at the given time.
func GenerateCode(sharedSecret string, at time.Time) (string, error) {
	state, err := NewState(sharedSecret)
	if err != nil {
		return "", err
	}

	return state.GenerateTotpCode(at), nil
}

func (s State) GenerateTotpCode(at time.Time) string {
	// 00 00 00 00 xx xx xx xx
	unixTime := uint64(at.Unix()) / StepSeconds
	timeBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(timeBytes, unixTime)

	mac := hmac.New(sha1.New, s.sharedSecret)
	mac.Write(timeBytes)
	hashcode := mac.Sum(nil)

	// Last 4 bits provide initial position
	// len(hashcode) = 20 bytes
	start := hashcode[19] & 0xf

	// Extract 4 bytes at `start` and drop first bit
	fc32 := binary.BigEndian.Uint32(hashcode[start : start+4])
	fc32 &= 1<<31 - 1
	fullCode := int(fc32)

	code := make([]byte, CodeLength)
	for i := range code {
		code[i] = codeChars[fullCode%len(codeChars)]
		fullCode /= len(codeChars)
	}

	return string(code)
}
