package client

import (
	"github.com/psql-wire/client/errors"
	"github.com/xdg-go/scram"
)

// scramClient drives one SCRAM-SHA-256 exchange across the SASL,
// SASLContinue and SASLFinal backend messages. Channel binding
// (SCRAM-SHA-256-PLUS) is not implemented: it requires threading the TLS
// connection's channel-binding data through from the transport layer, which
// is out of scope here (transport setup is an external collaborator).
type scramClient struct {
	conv *scram.ClientConversation
}

const scramSHA256Mechanism = "SCRAM-SHA-256"

func newSCRAMClient(username, password string) (*scramClient, error) {
	c, err := scram.SHA256.NewClient(username, password, "")
	if err != nil {
		return nil, errors.Newf(errors.KindUnsupportedAuthMethod, "failed to initialize SCRAM-SHA-256 client: %v", err)
	}

	return &scramClient{conv: c.NewConversation()}, nil
}

// chooseMechanism picks SCRAM-SHA-256 from the backend's announced list.
// SCRAM-SHA-256-PLUS is recognized but never selected, per the channel
// binding limitation above.
func chooseMechanism(mechanisms []string) (string, error) {
	for _, m := range mechanisms {
		if m == scramSHA256Mechanism {
			return m, nil
		}
	}

	return "", errors.Newf(errors.KindUnsupportedAuthMethod, "server does not support SCRAM-SHA-256 (offered: %v)", mechanisms)
}

// initial returns the client's first SCRAM message, sent as the
// SASLInitialResponse body.
func (c *scramClient) initial() ([]byte, error) {
	msg, err := c.conv.Step("")
	if err != nil {
		return nil, errors.Newf(errors.KindUnsupportedAuthMethod, "scram: %v", err)
	}

	return []byte(msg), nil
}

// step advances the conversation with the server's challenge and returns
// the client's response, sent as a SASLResponse body.
func (c *scramClient) step(serverMsg []byte) ([]byte, error) {
	msg, err := c.conv.Step(string(serverMsg))
	if err != nil {
		return nil, errors.Newf(errors.KindUnsupportedAuthMethod, "scram: %v", err)
	}

	return []byte(msg), nil
}

// done reports whether the exchange has reached its final round.
func (c *scramClient) done() bool {
	return c.conv.Done()
}

// valid reports whether the server's final message was accepted.
func (c *scramClient) valid() bool {
	return c.conv.Valid()
}
