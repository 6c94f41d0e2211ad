package sdp

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanikai/icecam/internal/ice"
	"github.com/lanikai/icecam/internal/ice/icetest"
)

func mustAddr(t *testing.T, ip string, port int) ice.TransportAddress {
	t.Helper()
	addr, err := ice.ParseTransportAddress(ip, port)
	require.NoError(t, err)
	return addr
}

func TestDecodeScenario(t *testing.T) {
	text := "a=ice-ufrag:abc\na=ice-pwd:xyz\nm=audio 5000 RTP/AVP 0\nc=IN IP4 10.0.0.1\n" +
		"a=candidate:1 1 UDP 100 10.0.0.1 5000 typ host\n\n"
	info, err := DecodeString(text)
	require.NoError(t, err)

	assert.Equal(t, "abc", info.Ufrag)
	assert.Equal(t, "xyz", info.Password)
	assert.Equal(t, 1, info.ComponentCount)
	require.Len(t, info.Candidates, 1)
	assert.Equal(t, ice.Candidate{
		Foundation: "1",
		Component:  1,
		Priority:   100,
		Address:    mustAddr(t, "10.0.0.1", 5000),
		Type:       ice.Host,
	}, info.Candidates[0])

	def, ok := info.Default(1)
	assert.True(t, ok)
	assert.Equal(t, "10.0.0.1:5000", def.String())
	_, ok = info.Default(2)
	assert.False(t, ok)
}

func TestDecodeStopsAtEmptyLine(t *testing.T) {
	text := "a=ice-ufrag:abc\na=ice-pwd:xyz\nm=audio 5000 RTP/AVP 0\nc=IN IP4 10.0.0.1\n" +
		"a=candidate:1 1 UDP 100 10.0.0.1 5000 typ host\n\n" +
		"a=candidate:this is not parsed\n"
	info, err := DecodeReader(strings.NewReader(text))
	require.NoError(t, err)
	assert.Len(t, info.Candidates, 1)
}

func TestDecodeTrimsWhitespace(t *testing.T) {
	lines := []string{
		"  a=ice-ufrag:abc\r",
		"\ta=ice-pwd:xyz  ",
		"m=audio 5000 RTP/AVP 0",
		"c=IN IP6 fe80::1",
		"a=candidate:1 1 UDP 100 fe80::1 5000 typ host generation 0",
		"a=candidate:2 2 UDP 99 fe80::1 5001 typ host",
		"a=rtcp:5001 IN IP6 fe80::1",
	}
	info, err := Decode(lines)
	require.NoError(t, err)
	assert.Equal(t, "abc", info.Ufrag)
	assert.Equal(t, "xyz", info.Password)
	assert.Equal(t, 2, info.ComponentCount)
	assert.Equal(t, ice.IPv6, info.Candidates[0].Address.Family())
	def, _ := info.Default(2)
	assert.Equal(t, "[fe80::1]:5001", def.String())
}

func TestDecodeMalformedCandidates(t *testing.T) {
	header := []string{
		"a=ice-ufrag:abc",
		"a=ice-pwd:xyz",
		"m=audio 5000 RTP/AVP 0",
		"c=IN IP4 10.0.0.1",
		"a=candidate:1 1 UDP 100 10.0.0.1 5000 typ host",
	}
	for _, bad := range []string{
		"a=candidate:1 1 UDP 100 10.0.0.1 5000 typ",
		"a=candidate:1 1 UDP 100 10.0.0.1 5000 host typ",
		"a=candidate:1 1 UDP 100 10.0.0.1 5000 typ prflx",
		"a=candidate:1 1 UDP 100 10.0.0.300 5000 typ host",
		"a=candidate:1 1 UDP 100 10.0.0.1 port typ host",
		"a=candidate:1 1 UDP -5 10.0.0.1 5000 typ host",
		"a=candidate:1 0 UDP 100 10.0.0.1 5000 typ host",
		"a=candidate:1 257 UDP 100 10.0.0.1 5000 typ host",
		"a=candidate:\xff\xfe 1 UDP 100 10.0.0.1 5000 typ host",
		"a=candidate:é 1 UDP 100 10.0.0.1 5000 typ host",
		"a=candidate:" + strings.Repeat("f", 33) + " 1 UDP 100 10.0.0.1 5000 typ host",
		"a=rtcp:5001 IP4 10.0.0.1",
		"c=IN IP4",
		"a",
	} {
		info, err := Decode(append(append([]string(nil), header...), bad))
		assert.Nil(t, info, bad)
		var perr *ParseError
		assert.True(t, errors.As(err, &perr), "%s: %v", bad, err)
	}
}

func TestDecodeValidation(t *testing.T) {
	cases := map[string]struct {
		lines []string
		want  error
	}{
		"no candidates": {
			[]string{"a=ice-ufrag:abc", "a=ice-pwd:xyz", "m=audio 5000 RTP/AVP 0", "c=IN IP4 10.0.0.1"},
			ErrIncomplete,
		},
		"no ufrag": {
			[]string{"a=ice-pwd:xyz", "m=audio 5000 RTP/AVP 0", "c=IN IP4 10.0.0.1",
				"a=candidate:1 1 UDP 100 10.0.0.1 5000 typ host"},
			ErrIncomplete,
		},
		"no connection line": {
			[]string{"a=ice-ufrag:abc", "a=ice-pwd:xyz", "m=audio 5000 RTP/AVP 0",
				"a=candidate:1 1 UDP 100 10.0.0.1 5000 typ host"},
			ErrNoDefaultAddress,
		},
		"no rtcp line": {
			[]string{"a=ice-ufrag:abc", "a=ice-pwd:xyz", "m=audio 5000 RTP/AVP 0", "c=IN IP4 10.0.0.1",
				"a=candidate:1 1 UDP 100 10.0.0.1 5000 typ host",
				"a=candidate:1 2 UDP 99 10.0.0.1 5001 typ host"},
			ErrNoDefaultAddress,
		},
	}
	for name, tc := range cases {
		info, err := Decode(tc.lines)
		assert.Nil(t, info, name)
		assert.True(t, errors.Is(err, tc.want), "%s: %v", name, err)
	}

	_, err := Decode([]string{"a=ice-ufrag:abc", "a=ice-pwd:xyz", "m=audio 5000 RTP/AVP 0",
		"c=IN IP4 not-an-ip", "a=candidate:1 1 UDP 100 10.0.0.1 5000 typ host"})
	var perr *ParseError
	assert.True(t, errors.As(err, &perr))
	assert.True(t, errors.Is(err, ice.ErrInvalidAddress))
}

func TestDecodeIgnoresSecondMediaSection(t *testing.T) {
	lines := []string{
		"v=0",
		"a=ice-ufrag:abc",
		"a=ice-pwd:xyz",
		"m=audio 5000 RTP/AVP 0",
		"c=IN IP4 10.0.0.1",
		"a=candidate:1 1 UDP 100 10.0.0.1 5000 typ host",
		"m=video 6000 RTP/AVP 96",
		"c=IN IP4 10.9.9.9",
		"a=candidate:bogus",
	}
	info, err := Decode(lines)
	require.NoError(t, err)
	assert.Len(t, info.Candidates, 1)
	def, _ := info.Default(1)
	assert.Equal(t, "10.0.0.1:5000", def.String())
}

func TestDecodeExtraDefaults(t *testing.T) {
	lines := []string{
		"a=ice-ufrag:abc",
		"a=ice-pwd:xyz",
		"m=audio 5000 RTP/AVP 0",
		"c=IN IP4 10.0.0.1",
		"a=rtcp:5001 IN IP4 10.0.0.2",
		"a=Xice-defcand:5002 IN IP4 10.0.0.3",
		"a=Xice-defcand:5003 IN IP4 10.0.0.4",
		"a=candidate:1 1 UDP 100 10.0.0.1 5000 typ host",
		"a=candidate:1 2 UDP 100 10.0.0.2 5001 typ srflx",
		"a=candidate:1 3 UDP 100 10.0.0.3 5002 typ relay",
	}
	info, err := Decode(lines)
	require.NoError(t, err)
	assert.Equal(t, 3, info.ComponentCount)
	require.Len(t, info.DefaultAddress, 3)
	assert.Equal(t, "10.0.0.2:5001", info.DefaultAddress[1].String())
	assert.Equal(t, "10.0.0.3:5002", info.DefaultAddress[2].String())
	assert.Equal(t, ice.Relayed, info.Candidates[2].Type)
}

func newFakeSession(t *testing.T, components int) ice.Instance {
	t.Helper()
	var engine icetest.FakeEngine
	inst, err := engine.Create(ice.Config{}, components, ice.Callbacks{})
	require.NoError(t, err)
	require.NoError(t, inst.InitSession(ice.Controlling))
	return inst
}

func TestEncodeLocal(t *testing.T) {
	text, err := EncodeLocal(newFakeSession(t, 3), 0)
	require.NoError(t, err)

	assert.Equal(t, "v=0\n"+
		"o=- 3414953978 3414953978 IN IP4 localhost\n"+
		"s=ice\n"+
		"t=0 0\n"+
		"a=ice-ufrag:"+icetest.Ufrag+"\n"+
		"a=ice-pwd:"+icetest.Password+"\n"+
		"m=audio 4001 RTP/AVP 0\n"+
		"c=IN IP4 10.0.0.1\n"+
		"a=candidate:H0a000001 1 UDP 2130706431 10.0.0.1 4001 typ host\n"+
		"a=rtcp:4002 IN IP4 10.0.0.1\n"+
		"a=candidate:H0a000001 2 UDP 2130706430 10.0.0.1 4002 typ host\n"+
		"a=Xice-defcand:4003 IN IP4 10.0.0.1\n"+
		"a=candidate:H0a000001 3 UDP 2130706429 10.0.0.1 4003 typ host\n", text)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	inst := newFakeSession(t, 3)
	text, err := EncodeLocal(inst, 0)
	require.NoError(t, err)

	info, err := DecodeString(text)
	require.NoError(t, err)
	assert.Equal(t, icetest.Ufrag, info.Ufrag)
	assert.Equal(t, icetest.Password, info.Password)
	assert.Equal(t, 3, info.ComponentCount)
	for comp := 1; comp <= 3; comp++ {
		want := icetest.HostCandidate(comp)
		assert.Equal(t, want, info.Candidates[comp-1])
		def, ok := info.Default(comp)
		assert.True(t, ok)
		assert.True(t, want.Address.Equal(def))
	}
}

func TestEncodeCapacity(t *testing.T) {
	inst := newFakeSession(t, 1)
	full, err := EncodeLocal(inst, 0)
	require.NoError(t, err)

	text, err := EncodeLocal(inst, len(full))
	require.NoError(t, err)
	assert.Equal(t, full, text)

	text, err = EncodeLocal(inst, len(full)-1)
	assert.True(t, errors.Is(err, ErrTooSmall))
	assert.Empty(t, text)
}

func TestEncodeWithoutSession(t *testing.T) {
	var engine icetest.FakeEngine
	inst, err := engine.Create(ice.Config{}, 1, ice.Callbacks{})
	require.NoError(t, err)

	_, err = EncodeLocal(inst, 0)
	assert.True(t, errors.Is(err, ice.ErrNoSession))
}

func TestCandidateLine(t *testing.T) {
	c := ice.Candidate{
		Foundation: "S1",
		Component:  2,
		Priority:   1694498815,
		Address:    mustAddr(t, "2001:db8::5", 61000),
		Type:       ice.ServerReflexive,
	}
	assert.Equal(t, "a=candidate:S1 2 UDP 1694498815 2001:db8::5 61000 typ srflx\n", CandidateLine(c))
}

func TestDecodeIgnoresTrailingTokens(t *testing.T) {
	info, err := Decode([]string{
		"a=ice-ufrag:abc",
		"a=ice-pwd:xyz",
		"m=audio 5000 RTP/AVP 0",
		"c=IN IP4 10.0.0.1",
		"a=candidate:1 1 UDP 100 10.0.0.1 5000 typ host raddr",
		"a=candidate:2 1 UDP 90 10.0.0.2 5002 typ srflx raddr 10.0.0.1 rport 5000 generation",
	})
	require.NoError(t, err)
	require.Len(t, info.Candidates, 2)
	assert.Equal(t, ice.Host, info.Candidates[0].Type)
	assert.Equal(t, ice.ServerReflexive, info.Candidates[1].Type)
	assert.Equal(t, "10.0.0.2:5002", info.Candidates[1].Address.String())
}

func TestDecodeMappedAddress(t *testing.T) {
	info, err := Decode([]string{
		"a=ice-ufrag:abc",
		"a=ice-pwd:xyz",
		"m=audio 5000 RTP/AVP 0",
		"c=IN IP6 ::ffff:10.0.0.1",
		"a=candidate:1 1 UDP 100 ::ffff:10.0.0.1 5000 typ host",
	})
	require.NoError(t, err)
	assert.Equal(t, "a=candidate:1 1 UDP 100 10.0.0.1 5000 typ host\n", CandidateLine(info.Candidates[0]))
	def, _ := info.Default(1)
	assert.Equal(t, "IP4", def.NetworkTypeToken())
}
