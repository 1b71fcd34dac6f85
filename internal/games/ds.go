package games

import (
	"crypto/md5"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DS salts used by the bbs app builds. These are fixed per app version and
// shared by every account.
const (
	saltIOS     = "9ttJY72HxbjwWRNHJvn0n2AYue47nYsK"
	saltAndroid = "BIPaooxbWZW02fGHZL1If26mYCljPgst"

	appVersion = "2.63.1"
)

const dsRandChars = "abcdefghijklmnopqrstuvwxyz0123456789"

// generateDS builds the DS header the sign and mission endpoints require:
// "t,r,md5(salt=..&t=..&r=..)" with a six-character random component.
func generateDS(platform string) string {
	salt := saltIOS
	if platform == "android" {
		salt = saltAndroid
	}

	t := time.Now().Unix()
	b := make([]byte, 6)
	for i := range b {
		b[i] = dsRandChars[rand.Intn(len(dsRandChars))]
	}
	r := string(b)

	sum := md5.Sum([]byte(fmt.Sprintf("salt=%s&t=%d&r=%s", salt, t, r)))
	return fmt.Sprintf("%d,%s,%x", t, r, sum)
}

// GenerateDeviceID returns a fresh uppercase device identifier for accounts
// configured without one.
func GenerateDeviceID() string {
	return strings.ToUpper(uuid.New().String())
}
