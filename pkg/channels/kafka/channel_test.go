package kafka

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
)

func TestCreateChannel_NoBrokers(t *testing.T) {
	for _, brokers := range [][]string{nil, {""}} {
		pub, sub, err := CreateChannel(watermill.NopLogger{}, "crmflow", brokers)

		assert.ErrorIs(t, err, ErrNoBrokers)
		assert.Nil(t, pub)
		assert.Nil(t, sub)
	}
}
