package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"damage-intake/pkg/damage"
	embeddednats "damage-intake/pkg/services/embedded-nats"
	"damage-intake/pkg/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tags out of canonical order, lower-case call sign.
const scrambled = `!SCCoPIFO!
#T: form-damage-assessment.html
#V: 3.20-1.0
MsgNo: [6EI-007M]
OpCall: [w6ei]
OpName: [Bob Iannucci]
OpDate: [09/24/2025]
OpTime: [17:53]
1a.: [09/22/2025]
1b.: [12:31]
5.: [routine]
7a.: [Damage/Safety Assessment Group]
8a.: [Developer]
7b.: [Palo Alto]
8b.: [Palo Alto]
7c.: [Bob Iannucci]
8c.: [Bob Iannucci]
7d.: [Bob]
8d.: [Bob]
20.: [Palo Alto]
21.: [Development test]
22.: [3540 South Court]
23.: [None]
24.: [Single Family]
25.: [2]
26.: [Own]
27d.: [checked]
28.: [N/A]
29.: [Affected]
30.: [Yellow]
31.: [No]
32.: [1000]
33.: [Comments here]
34.: [Bob Iannucci]
35.: [6507141200]
!/ADDON!`

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_CanonicalOutput(t *testing.T) {
	code, out, errOut := runCLI(t, scrambled)
	require.Equal(t, exitOK, code, errOut)

	assert.True(t, strings.HasPrefix(out, "!SCCoPIFO!\n#T: form-damage-assessment.html\n#V: 3.20-1.0\nMsgNo: [6EI-007M]\n1a.: [09/22/2025]"))
	assert.True(t, strings.HasSuffix(out, "OpTime: [17:53]\n!/ADDON!\n"))
	assert.Contains(t, out, "5.: [Routine]\n7a.")

	// canonical output is a fixed point
	code, again, _ := runCLI(t, out)
	require.Equal(t, exitOK, code)
	assert.Equal(t, out, again)
}

func TestRun_FileArgument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, os.WriteFile(path, []byte(scrambled), 0o644))

	code, out, _ := runCLI(t, "", path)
	require.Equal(t, exitOK, code)
	r, err := damage.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, "W6EI", r.Fields().OpCall)
}

func TestRun_JSON(t *testing.T) {
	code, out, _ := runCLI(t, scrambled, "--json")
	require.Equal(t, exitOK, code)

	var fields map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &fields))
	assert.Equal(t, "W6EI", fields["op_call"])
	assert.Equal(t, "Routine", fields["handling"])
	assert.Equal(t, true, fields["type_damage_other"])
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name     string
		stdin    string
		args     []string
		code     int
		contains string
	}{
		{"format", "hello", nil, exitInvalid, damage.CodeFormat},
		{"missing", strings.Replace(scrambled, "OpCall: [w6ei]\n", "", 1), nil, exitInvalid, damage.CodeMissing},
		{"validation", strings.Replace(scrambled, "25.: [2]", "25.: [0]", 1), nil, exitInvalid, damage.CodeValidation},
		{"too many files", scrambled, []string{"a", "b"}, exitUsage, "at most one file"},
		{"unknown flag", scrambled, []string{"--nope"}, exitUsage, "nope"},
		{"empty source", scrambled, []string{"--source", ""}, exitUsage, "--source"},
		{"missing file", "", []string{filepath.Join(t.TempDir(), "absent.txt")}, exitUsage, "absent.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out, errOut := runCLI(t, tt.stdin, tt.args...)
			assert.Equal(t, tt.code, code)
			assert.Empty(t, out)
			assert.Contains(t, errOut, tt.contains)
		})
	}
}

func TestRun_Help(t *testing.T) {
	code, _, errOut := runCLI(t, "", "--help")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, errOut, "usage: damagefmt")
}

func TestRun_Submit(t *testing.T) {
	cfg := embeddednats.DefaultConfig()
	cfg.Port = -1
	cfg.DataDir = t.TempDir()
	cfg.Quiet = true
	en, err := embeddednats.New(cfg)
	require.NoError(t, err)
	require.NoError(t, en.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = en.Shutdown(ctx)
	})
	require.NoError(t, en.CreateDamageStreams())

	code, _, errOut := runCLI(t, scrambled, "--submit", en.ClientURL(), "--source", shared.SourceMesh)
	require.Equal(t, exitOK, code, errOut)

	info, err := en.JetStream().StreamInfo(shared.StreamIntake)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.State.Msgs)

	msg, err := en.JetStream().GetLastMsg(shared.StreamIntake, shared.IntakeSubject(shared.SourceMesh))
	require.NoError(t, err)
	assert.Equal(t, scrambled, string(msg.Data))
}

func TestRun_SubmitUnreachable(t *testing.T) {
	code, out, _ := runCLI(t, scrambled, "--submit", "nats://127.0.0.1:1")
	assert.Equal(t, exitSubmit, code)
	assert.NotEmpty(t, out, "the record is printed before submitting")
}
