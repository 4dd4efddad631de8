package common

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"
)

// _UUID_LENGTH is the encoded length of generated ids
const _UUID_LENGTH = 16

const encodeUUID = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_."

var (
	uuidEncoding = base64.NewEncoding(encodeUUID).WithPadding(base64.NoPadding)

	machineID     [3]byte
	uuidCounter   uint32
	processPrefix [2]byte
)

func init() {
	hostname, err := os.Hostname()
	if err != nil {
		// fall back to random machine bytes
		if _, err := io.ReadFull(rand.Reader, machineID[:]); err != nil {
			panic(fmt.Errorf("uuid: cannot initialize machine id: %v", err))
		}
	} else {
		sum := md5.Sum([]byte(hostname))
		copy(machineID[:], sum[:3])
	}

	pid := os.Getpid()
	processPrefix[0] = byte(pid >> 8)
	processPrefix[1] = byte(pid)
}

// genUUID generates a compact unique id: timestamp + machine + pid + counter,
// base64 encoded with a URL-safe alphabet
func genUUID() string {
	var b [12]byte
	binary.BigEndian.PutUint32(b[:], uint32(time.Now().Unix()))
	b[4] = machineID[0]
	b[5] = machineID[1]
	b[6] = machineID[2]
	b[7] = processPrefix[0]
	b[8] = processPrefix[1]
	i := atomic.AddUint32(&uuidCounter, 1)
	b[9] = byte(i >> 16)
	b[10] = byte(i >> 8)
	b[11] = byte(i)
	return uuidEncoding.EncodeToString(b[:])
}
