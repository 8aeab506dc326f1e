package devices

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/remoteaudio/internal/audiocore/remote"
	"github.com/tphakala/remoteaudio/internal/conf"
)

func TestDevicesOutputFormats(t *testing.T) {
	t.Parallel()

	b := remote.New(remote.Config{})
	defer func() { require.NoError(t, b.Close()) }()
	report, release, err := collect(b)
	require.NoError(t, err)
	defer release()

	var out bytes.Buffer
	require.NoError(t, write(&out, report, "json"))
	var decoded struct {
		Backend string `json:"backend"`
		Outputs []struct {
			ID                     string `json:"id"`
			Aim                    string `json:"aim"`
			SoftwareLatencyCurrent int64  `json:"software_latency_current"`
		} `json:"outputs"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "remote", decoded.Backend)
	require.Len(t, decoded.Outputs, 1)
	assert.Equal(t, "output", decoded.Outputs[0].Aim)
	assert.Equal(t, int64(remote.DefaultSoftwareLatency), decoded.Outputs[0].SoftwareLatencyCurrent)

	out.Reset()
	require.NoError(t, write(&out, report, "yaml"))
	var y map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &y))
	assert.Equal(t, "remote", y["backend"])
	assert.Len(t, y["inputs"], 1)

	out.Reset()
	require.NoError(t, write(&out, report, "text"))
	assert.Contains(t, out.String(), "Remote Output Device (output)")
	assert.Contains(t, out.String(), "Remote Input Device (input)")
	assert.Contains(t, out.String(), "20 - 192000 Hz")

	require.Error(t, write(&out, report, "xml"))
}

func TestDevicesReleasesReferences(t *testing.T) {
	t.Parallel()

	b := remote.New(remote.Config{})
	defer func() { require.NoError(t, b.Close()) }()

	report, release, err := collect(b)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Outputs[0].RefCount())
	release()
	assert.Equal(t, 1, report.Outputs[0].RefCount())
}

func TestDevicesCommand(t *testing.T) {
	t.Parallel()

	cmd := Command(&conf.Settings{})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"-o", "json"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), `"remote-in"`)
}
