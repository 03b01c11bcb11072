package idgen

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// Generator hands out codes that must be unique across the whole deployment.
type Generator interface {
	CorrelationCode() string
	CertificateNumber() string
}

const (
	correlationPrefix = "TXN_"
	certificatePrefix = "CERT-"
)

// Snowflake derives codes from time-ordered snowflake ids. Each process needs its
// own node id (0..1023).
type Snowflake struct {
	node *snowflake.Node
}

func NewSnowflake(nodeID int64) (*Snowflake, error) {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", nodeID, err)
	}
	return &Snowflake{node: n}, nil
}

func (s *Snowflake) CorrelationCode() string {
	return correlationPrefix + s.node.Generate().String()
}

func (s *Snowflake) CertificateNumber() string {
	return certificatePrefix + s.node.Generate().Base36()
}
