package protocol

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solihah-a/tictactoev4/internal/entity"
)

func TestFrameRoundTrip(t *testing.T) {
	t.Run("Request survives a wire round trip", func(t *testing.T) {
		// Given: a SEND_MOVE request
		var buf bytes.Buffer
		request := NewRequest(TypeSendMove, "4")

		// When: it is framed and decoded back
		require.NoError(t, WriteFrame(&buf, request))

		var decoded Request
		require.NoError(t, DecodeFrame(&buf, &decoded))

		// Then: every populated field matches
		assert.Equal(t, *request, decoded)
	})

	t.Run("PairingResponse keeps roster and invitation", func(t *testing.T) {
		// Given: a pairing response with a roster and a pending invitation
		var buf bytes.Buffer
		response := &PairingResponse{
			Response: Response{Status: StatusSuccess},
			AvailableUsers: []*entity.User{
				{Username: "alice"},
				{Username: "bob"},
			},
			Invitation: entity.NewEvent(7, "alice", "bob"),
		}

		// When: it is framed and decoded back
		require.NoError(t, WriteFrame(&buf, response))

		var decoded PairingResponse
		require.NoError(t, DecodeFrame(&buf, &decoded))

		// Then: roster order and event fields are preserved, absent
		// fields stay nil
		assert.Equal(t, response.AvailableUsers, decoded.AvailableUsers)
		assert.Equal(t, response.Invitation, decoded.Invitation)
		assert.Nil(t, decoded.InvitationResponse)
	})

	t.Run("GamingResponse decodes from a base-shaped reply", func(t *testing.T) {
		// Given: a frame holding only the base response fields
		var buf bytes.Buffer
		require.NoError(t, WriteFrame(&buf, Failure("no game")))

		// When: a caller decodes it as a GamingResponse
		var decoded GamingResponse
		require.NoError(t, DecodeFrame(&buf, &decoded))

		// Then: the extra fields zero out
		assert.Equal(t, StatusFailure, decoded.Status)
		assert.Equal(t, 0, decoded.Move)
		assert.False(t, decoded.Active)
	})
}

func TestFrameErrors(t *testing.T) {
	t.Run("Oversized payload is refused", func(t *testing.T) {
		var buf bytes.Buffer
		request := NewRequest(TypeSendInvitation, strings.Repeat("x", maxFrameSize))

		err := WriteFrame(&buf, request)

		assert.ErrorIs(t, err, ErrFrameTooLarge)
		assert.Zero(t, buf.Len())
	})

	t.Run("Truncated frame is a transport error", func(t *testing.T) {
		// Given: a frame announcing more bytes than it carries
		reader := bytes.NewReader([]byte{0x00, 0x10, '{', '}'})

		_, err := ReadFrame(reader)

		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrMalformed)
	})

	t.Run("Intact frame with broken JSON is a protocol error", func(t *testing.T) {
		// Given: a well-framed body that is not JSON
		reader := bytes.NewReader([]byte{0x00, 0x03, 'n', 'o', 'p'})

		var decoded Response
		err := DecodeFrame(reader, &decoded)

		assert.ErrorIs(t, err, ErrMalformed)
	})
}
