package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	pkgWallet "github.com/polkiloo/bitlend/internal/pkg/wallet"
)

// ConnectError is a failure reported by the server at the end of a handshake.
type ConnectError struct {
	Code string
}

func (e *ConnectError) Error() string {
	return "wallet connect failed: " + e.Code
}

// Sign drives the signer side of the handshake on conn using signer for the
// key material and returns the issued session token. A rejection by signer is
// forwarded to the server rather than returned.
func Sign(ctx context.Context, conn *websocket.Conn, signer pkgWallet.Provider) (string, error) {
	address, err := signer.Address(ctx)
	if err != nil {
		return "", err
	}
	if err := send(conn, Message{Type: TypeHello, Address: address}); err != nil {
		return "", fmt.Errorf("send hello: %w", err)
	}

	for {
		if d, ok := ctx.Deadline(); ok {
			_ = conn.SetReadDeadline(d)
		}
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return "", fmt.Errorf("read server message: %w", err)
		}

		switch msg.Type {
		case TypeSign:
			reply := Message{Type: TypeReject}
			sig, err := signer.RequestSignature(ctx, address, msg.Challenge)
			switch {
			case err == nil:
				reply = Message{Type: TypeSignature, PublicKey: sig.PublicKey, Signature: sig.Sig}
			case !errors.Is(err, pkgWallet.ErrUserRejected):
				return "", err
			}
			if err := send(conn, reply); err != nil {
				return "", fmt.Errorf("send %s: %w", reply.Type, err)
			}
		case TypeSession:
			return msg.Token, nil
		case TypeError:
			return "", &ConnectError{Code: msg.Code}
		default:
			return "", unexpected(msg.Type)
		}
	}
}

func send(conn *websocket.Conn, msg Message) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}
