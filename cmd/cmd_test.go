package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fernet/fernet-go"
	"github.com/stretchr/testify/require"

	"github.com/abdoudjigo/modelopt/crypt"
	"github.com/abdoudjigo/modelopt/loader"
	"github.com/abdoudjigo/modelopt/model"
	"github.com/abdoudjigo/modelopt/optimize"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	c := NewCLI()
	c.SetArgs(args)
	c.SetOut(&out)
	c.SetErr(&out)
	err := c.ExecuteContext(t.Context())
	return out.String(), err
}

func writeModel(t *testing.T, dir string) string {
	t.Helper()

	m := model.New("safetensors")
	w, err := model.NewTensor("fc.weight", []int{4, 4}, model.DTypeF32, []float32{
		0.1, -0.2, 0.3, -0.4, 0.5, -0.6, 0.7, -0.8,
		0.9, -1.0, 1.1, -1.2, 1.3, -1.4, 1.5, -1.6,
	})
	require.NoError(t, err)
	require.NoError(t, m.Add(w))

	b, err := model.NewTensor("fc.bias", []int{4}, model.DTypeF32, []float32{0.1, 0.2, 0.3, 0.4})
	require.NoError(t, err)
	require.NoError(t, m.Add(b))

	p := filepath.Join(dir, "model.safetensors")
	require.NoError(t, loader.Save(m, p, loader.FormatSafetensors))
	return p
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"SHADOW_MODE", "MODEL_KEY", "MODELOPT_STATS"} {
		t.Setenv(k, "")
	}
}

func TestShadowModeSelection(t *testing.T) {
	cases := []struct {
		name   string
		env    string
		args   []string
		level  string
		ratio  string
		shadow bool
	}{
		{"default", "", nil, "8", "0.9", false},
		{"flag", "", []string{"--shadow"}, "4", "0.7", true},
		{"env", "true", nil, "4", "0.7", true},
		{"env other value", "yes", nil, "8", "0.9", false},
		{"flag overrides env", "true", []string{"--shadow=false"}, "8", "0.9", false},
		{"override level", "", []string{"--quant-level", "6", "--ratio", "0.5"}, "6", "0.5", false},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("SHADOW_MODE", tt.env)

			dir := t.TempDir()
			in := writeModel(t, dir)
			out := filepath.Join(dir, "out.safetensors")

			args := append([]string{"--input", in, "--output", out}, tt.args...)
			stdout, err := execute(t, args...)
			require.NoError(t, err)
			require.Contains(t, stdout, "wrote "+out)

			m, err := loader.Load(out, nil)
			require.NoError(t, err)
			require.Equal(t, tt.level, m.Metadata[optimize.MetadataQuantLevel])
			require.Equal(t, tt.ratio, m.Metadata[optimize.MetadataRatio])
		})
	}
}

func TestOptimizeStats(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	in := writeModel(t, dir)

	stdout, err := execute(t, "-i", in, "-o", filepath.Join(dir, "out.gguf"), "--stats")
	require.NoError(t, err)
	require.Contains(t, stdout, "fc.weight")
	require.Contains(t, stdout, "QUANTIZED")
}

func TestEncryptAndOptimize(t *testing.T) {
	clearEnv(t)
	t.Setenv("MODEL_KEY", "s3cret")

	dir := t.TempDir()
	in := writeModel(t, dir)

	stdout, err := execute(t, "encrypt", "--input", in)
	require.NoError(t, err)
	require.Contains(t, stdout, in+loader.EncryptedSuffix)

	out := filepath.Join(dir, "out.safetensors")
	_, err = execute(t, "--input", in+loader.EncryptedSuffix, "--output", out)
	require.NoError(t, err)
	require.FileExists(t, out)

	t.Setenv("MODEL_KEY", "wrong")
	_, err = execute(t, "--input", in+loader.EncryptedSuffix, "--output", filepath.Join(dir, "bad.safetensors"))
	require.ErrorIs(t, err, crypt.ErrDecrypt)
	require.Equal(t, ExitDecrypt, ExitCode(err))

	t.Setenv("MODEL_KEY", "")
	_, err = execute(t, "--input", in+loader.EncryptedSuffix, "--output", filepath.Join(dir, "bad.safetensors"))
	require.Equal(t, ExitKey, ExitCode(err))

	tmps, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	require.Empty(t, tmps)
}

func TestEncryptDefaultKey(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	in := writeModel(t, dir)

	_, err := execute(t, "encrypt", "--input", in)
	require.ErrorIs(t, err, crypt.ErrNoKey)

	_, err = execute(t, "encrypt", "--input", in, "--allow-default-key")
	require.NoError(t, err)

	_, err = execute(t, "show", in+loader.EncryptedSuffix, "--allow-default-key")
	require.NoError(t, err)
}

func TestKeygen(t *testing.T) {
	stdout, err := execute(t, "keygen")
	require.NoError(t, err)

	key := strings.TrimSpace(stdout)
	require.Len(t, key, 44)
	_, err = fernet.DecodeKey(key)
	require.NoError(t, err)
}

func TestShow(t *testing.T) {
	clearEnv(t)
	in := writeModel(t, t.TempDir())

	stdout, err := execute(t, "show", "--verbose", in)
	require.NoError(t, err)
	for _, want := range []string{"safetensors", "fc", "linear", "fc.weight", "fc.bias", "[4 4]"} {
		require.Contains(t, stdout, want)
	}
}

func TestUsageErrors(t *testing.T) {
	clearEnv(t)

	cases := [][]string{
		{},
		{"--input", "x.safetensors"},
		{"--input", "a", "--output", "b", "--quant-level", "0"},
		{"--input", "a", "--output", "b", "--format", "onnx"},
		{"--no-such-flag"},
		{"show"},
		{"stray-argument"},
	}

	for _, args := range cases {
		_, err := execute(t, args...)
		require.Error(t, err, "args %v", args)
		require.Equal(t, ExitUsage, ExitCode(err), "args %v: %v", args, err)
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{errors.New("boom"), ExitFailure},
		{usageError{errors.New("bad flag")}, ExitUsage},
		{fmt.Errorf("run: %w", optimize.ErrInvalidOptions), ExitUsage},
		{crypt.ErrNoKey, ExitKey},
		{fmt.Errorf("key: %w", crypt.ErrInvalidKey), ExitKey},
		{fmt.Errorf("load: %w", crypt.ErrDecrypt), ExitDecrypt},
		{fmt.Errorf("%w: %w", loader.ErrFormat, &fs.PathError{Op: "read", Path: "x", Err: fs.ErrClosed}), ExitMalformed},
		{&fs.PathError{Op: "open", Path: "x", Err: fs.ErrNotExist}, ExitIO},
	}

	for _, tt := range cases {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, erwartet %d", tt.err, got, tt.want)
		}
	}
}

func TestHumanNumber(t *testing.T) {
	cases := map[uint64]string{
		0:             "0",
		999:           "999",
		1_500:         "1.5K",
		7_000_000:     "7.0M",
		1_230_000_000: "1.2B",
	}
	for in, want := range cases {
		if got := humanNumber(in); got != want {
			t.Errorf("humanNumber(%d) = %q, erwartet %q", in, got, want)
		}
	}
}
