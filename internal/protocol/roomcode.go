package protocol

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"
)

var ErrRoomNameTooLong = errors.New("room name too long")

// RoomCodeAlphabet leaves out I, O, 0 and 1.
const RoomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const RoomCodeLength = 4

// MaxRoomName is counted in runes.
const MaxRoomName = 48

func NewRoomCode() (string, error) {
	code := make([]byte, RoomCodeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(RoomCodeAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = RoomCodeAlphabet[num.Int64()]
	}
	return string(code), nil
}

// NormalizeRoomCode trims and upper-cases s and reports whether the result
// is a well-formed code.
func NormalizeRoomCode(s string) (string, bool) {
	code := strings.ToUpper(strings.TrimSpace(s))
	if len(code) != RoomCodeLength {
		return code, false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(RoomCodeAlphabet, code[i]) < 0 {
			return code, false
		}
	}
	return code, true
}

// NormalizeRoomName trims name and checks its length.
func NormalizeRoomName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n > MaxRoomName {
		return "", fmt.Errorf("%w: %d runes, max %d", ErrRoomNameTooLong, n, MaxRoomName)
	}
	return name, nil
}
