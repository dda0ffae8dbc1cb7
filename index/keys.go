package index

import (
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/neuronidx/neuron"
)

// Keys are big endian so that byte order matches numeric order.

func encodeNeuronID(id neuron.NeuronID) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(id))
}

func decodeNeuronID(b []byte) (neuron.NeuronID, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("neuron id: expected 8 bytes, got %d", len(b))
	}
	return neuron.NeuronID(binary.BigEndian.Uint64(b)), nil
}

// encodeTopic flips the sign bit so negative topics sort first.
func encodeTopic(dst []byte, topic neuron.Topic) []byte {
	return binary.BigEndian.AppendUint32(dst, uint32(topic)^(1<<31))
}

func decodeTopic(b []byte) neuron.Topic {
	return neuron.Topic(int32(binary.BigEndian.Uint32(b) ^ (1 << 31)))
}

// principalKey is [Len: 1] [Principal: Len] [NeuronID: 8].
func principalKey(p neuron.PrincipalID, id neuron.NeuronID) []byte {
	raw := p.Bytes()
	key := make([]byte, 0, 1+len(raw)+8)
	key = append(key, byte(len(raw)))
	key = append(key, raw...)
	return binary.BigEndian.AppendUint64(key, uint64(id))
}

func decodePrincipalKey(key []byte) (neuron.PrincipalID, neuron.NeuronID, error) {
	if len(key) < 1 || len(key) != 1+int(key[0])+8 {
		return neuron.PrincipalID{}, 0, fmt.Errorf("principal key: bad length %d", len(key))
	}
	n := int(key[0])
	p, err := neuron.PrincipalIDFromBytes(key[1 : 1+n])
	if err != nil {
		return neuron.PrincipalID{}, 0, err
	}
	return p, neuron.NeuronID(binary.BigEndian.Uint64(key[1+n:])), nil
}

// followingKey is [Topic: 4] [Followee: 8] [Follower: 8].
func followingKey(pair neuron.TopicFolloweePair, follower neuron.NeuronID) []byte {
	key := make([]byte, 0, 20)
	key = encodeTopic(key, pair.Topic)
	key = binary.BigEndian.AppendUint64(key, uint64(pair.Followee))
	return binary.BigEndian.AppendUint64(key, uint64(follower))
}

func decodeFollowingKey(key []byte) (neuron.TopicFolloweePair, neuron.NeuronID, error) {
	if len(key) != 20 {
		return neuron.TopicFolloweePair{}, 0, fmt.Errorf("following key: bad length %d", len(key))
	}
	pair := neuron.TopicFolloweePair{
		Topic:    decodeTopic(key),
		Followee: neuron.NeuronID(binary.BigEndian.Uint64(key[4:])),
	}
	return pair, neuron.NeuronID(binary.BigEndian.Uint64(key[12:])), nil
}
