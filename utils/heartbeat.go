package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

var (
	heartbeatCtr atomic.Uint64 // monotonic per process
	heartbeatVer = "1"         // bump if the signing format changes
)

// ErrBadSignature is returned by VerifyHeartbeat when the HMAC does not match.
var ErrBadSignature = errors.New("heartbeat signature mismatch")

// Heartbeat is the signed liveness message sent over the monitor link.
type Heartbeat struct {
	Type      string `json:"type"`      // "heartbeat"
	Version   string `json:"version"`   // signature format version
	AgentID   string `json:"agent_id"`  // worker instance id
	Counter   uint64 `json:"counter"`   // anti-replay
	Nonce     string `json:"nonce"`     // base64 random bytes
	Timestamp string `json:"timestamp"` // RFC3339Nano, UTC
	Signature string `json:"signature"` // base64 HMAC-SHA256 over the canonical string
}

// canonical string: fixed order and delimiter, shared with the verifier
func canonicalString(v, agent string, ctr uint64, nonceB64, ts string) string {
	return fmt.Sprintf("%s|%s|%d|%s|%s", v, agent, ctr, nonceB64, ts)
}

func signHMACSHA256(secret []byte, msg string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(msg))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// PrepareHeartbeatMessage builds and signs a heartbeat for agentID.
func PrepareHeartbeatMessage(signatureSecret []byte, agentID string) string {
	ctr := heartbeatCtr.Add(1)

	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		// still unique through the timestamp
		nonce = []byte(fmt.Sprintf("fallback-%d", time.Now().UnixNano()))
	}
	nonceB64 := base64.StdEncoding.EncodeToString(nonce)
	ts := time.Now().UTC().Format(time.RFC3339Nano)

	hb := Heartbeat{
		Type:      "heartbeat",
		Version:   heartbeatVer,
		AgentID:   agentID,
		Counter:   ctr,
		Nonce:     nonceB64,
		Timestamp: ts,
		Signature: signHMACSHA256(signatureSecret, canonicalString(heartbeatVer, agentID, ctr, nonceB64, ts)),
	}

	b, _ := json.Marshal(hb) // fields are plain strings and ints
	return string(b)
}

// VerifyHeartbeat parses msg and checks its signature against secret.
func VerifyHeartbeat(signatureSecret []byte, msg []byte) (*Heartbeat, error) {
	var hb Heartbeat
	if err := json.Unmarshal(msg, &hb); err != nil {
		return nil, fmt.Errorf("parse heartbeat: %w", err)
	}
	want := signHMACSHA256(signatureSecret, canonicalString(hb.Version, hb.AgentID, hb.Counter, hb.Nonce, hb.Timestamp))
	if !hmac.Equal([]byte(want), []byte(hb.Signature)) {
		return nil, ErrBadSignature
	}
	return &hb, nil
}
