// Package wallet carries the challenge/response handshake with an external
// signer over a WebSocket connection.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	pkgWallet "github.com/polkiloo/bitlend/internal/pkg/wallet"
)

// Message types exchanged with the signer.
const (
	TypeHello     = "hello"
	TypeSign      = "sign"
	TypeSignature = "signature"
	TypeReject    = "reject"
	TypeSession   = "session"
	TypeError     = "error"
)

const (
	writeWait      = 5 * time.Second
	maxMessageSize = 4 * 1024
)

// Message is the single frame shape of the handshake. Byte fields travel as
// base64 strings.
type Message struct {
	Type      string `json:"type"`
	Address   string `json:"address,omitempty"`
	Challenge []byte `json:"challenge,omitempty"`
	PublicKey []byte `json:"public_key,omitempty"`
	Signature []byte `json:"signature,omitempty"`
	Token     string `json:"token,omitempty"`
	Code      string `json:"code,omitempty"`
}

// Upgrader accepts signer connections from any origin; the handshake itself
// is what authenticates the peer.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

// Provider is the server side of a signer connection.
type Provider struct {
	conn *websocket.Conn

	writeMu sync.Mutex
	closed  sync.Once
}

// NewProvider wraps an upgraded connection.
func NewProvider(conn *websocket.Conn) *Provider {
	conn.SetReadLimit(maxMessageSize)
	return &Provider{conn: conn}
}

// Address waits for the signer's hello.
func (p *Provider) Address(ctx context.Context) (string, error) {
	msg, err := p.read(ctx)
	if err != nil {
		return "", err
	}
	switch msg.Type {
	case TypeHello:
		return msg.Address, nil
	case TypeReject:
		return "", pkgWallet.ErrUserRejected
	}
	return "", unexpected(msg.Type)
}

// RequestSignature sends the challenge and waits for the signer's answer.
func (p *Provider) RequestSignature(ctx context.Context, _ string, challenge []byte) (pkgWallet.Signature, error) {
	if err := p.write(Message{Type: TypeSign, Challenge: challenge}); err != nil {
		return pkgWallet.Signature{}, fmt.Errorf("send challenge: %w: %v", pkgWallet.ErrUnavailable, err)
	}
	msg, err := p.read(ctx)
	if err != nil {
		return pkgWallet.Signature{}, err
	}
	switch msg.Type {
	case TypeSignature:
		return pkgWallet.Signature{PublicKey: msg.PublicKey, Sig: msg.Signature}, nil
	case TypeReject:
		return pkgWallet.Signature{}, pkgWallet.ErrUserRejected
	}
	return pkgWallet.Signature{}, unexpected(msg.Type)
}

// Complete hands the session token to the signer.
func (p *Provider) Complete(token string) error {
	return p.write(Message{Type: TypeSession, Token: token})
}

// Fail reports an error code to the signer.
func (p *Provider) Fail(code string) error {
	return p.write(Message{Type: TypeError, Code: code})
}

// Close sends a normal closure and drops the connection. Safe to call twice.
func (p *Provider) Close() error {
	var err error
	p.closed.Do(func() {
		p.writeMu.Lock()
		_ = p.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		p.writeMu.Unlock()
		err = p.conn.Close()
	})
	return err
}

func (p *Provider) read(ctx context.Context) (Message, error) {
	deadline := time.Time{}
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	if err := p.conn.SetReadDeadline(deadline); err != nil {
		return Message{}, fmt.Errorf("%w: %v", pkgWallet.ErrUnavailable, err)
	}

	var msg Message
	if err := p.conn.ReadJSON(&msg); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Message{}, ctxErr
		}
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return Message{}, context.DeadlineExceeded
		}
		return Message{}, fmt.Errorf("read signer message: %w: %v", pkgWallet.ErrUnavailable, err)
	}
	return msg, nil
}

func (p *Provider) write(msg Message) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if err := p.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return p.conn.WriteJSON(msg)
}

func unexpected(typ string) error {
	return fmt.Errorf("unexpected signer message %q: %w", typ, pkgWallet.ErrUnavailable)
}

var _ pkgWallet.Provider = (*Provider)(nil)
