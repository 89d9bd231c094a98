package bus

import (
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (f *fakePublisher) Publish(subj string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subj)
	f.payloads = append(f.payloads, data)
	return nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestSubject(t *testing.T) {
	ev := RoomEvent{GameType: "goose", Room: "ABC123", Type: "gooseGameState"}
	assert.Equal(t, "duel.goose.ABC123.gooseGameState", ev.Subject())

	odd := RoomEvent{GameType: "artillery", Room: "a.b*c>", Type: ""}
	assert.Equal(t, "duel.artillery.a_b_c_._", odd.Subject())
}

func TestNATSPublishesJSON(t *testing.T) {
	fp := &fakePublisher{}
	n := newNATS(fp, quietLogger())

	n.Publish(RoomEvent{GameType: "numberline", Room: "ROOM01", Type: "gameStateUpdate", Payload: map[string]int{"tokenPosition": 7}})
	require.Len(t, fp.subjects, 1)
	assert.Equal(t, "duel.numberline.ROOM01.gameStateUpdate", fp.subjects[0])

	var got struct {
		Room    string         `json:"room"`
		Payload map[string]int `json:"payload"`
		At      string         `json:"at"`
	}
	require.NoError(t, json.Unmarshal(fp.payloads[0], &got))
	assert.Equal(t, "ROOM01", got.Room)
	assert.Equal(t, 7, got.Payload["tokenPosition"])
	assert.NotEmpty(t, got.At)
}

func TestNATSPublishErrorIsSwallowed(t *testing.T) {
	n := newNATS(&fakePublisher{err: errors.New("no responders")}, quietLogger())
	assert.NotPanics(t, func() {
		n.Publish(RoomEvent{GameType: "goose", Room: "R", Type: "x"})
	})
	assert.NotPanics(t, n.Close)
}
