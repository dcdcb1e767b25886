package detector

import (
	"archive/tar"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureApply records the payload the cascade hands over.
func captureApply(applied *[]byte) applyFunc {
	return func(payload []byte) error {
		*applied = append([]byte(nil), payload...)
		return nil
	}
}

func writeEnvelope(t *testing.T, path string, members map[string][]byte) {
	t.Helper()
	envelope := make(map[string]string, len(members))
	for k, v := range members {
		envelope[k] = base64.StdEncoding.EncodeToString(v)
	}
	data, err := json.Marshal(envelope)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func writeTar(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	tw := tar.NewWriter(f)
	for name, data := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0644,
			Size:     int64(len(data)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
}

func TestEnvelopeModelKeyTakesPriority(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	writeEnvelope(t, path, map[string][]byte{
		"model":      []byte("model-weights"),
		"state_dict": []byte("state-dict-weights"),
	})

	var applied []byte
	require.NoError(t, resolveCheckpoint(path, captureApply(&applied)))
	assert.Equal(t, []byte("model-weights"), applied)
}

func TestEnvelopeFallsBackToStateDict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	writeEnvelope(t, path, map[string][]byte{
		"state_dict": []byte("state-dict-weights"),
	})

	var applied []byte
	require.NoError(t, resolveCheckpoint(path, captureApply(&applied)))
	assert.Equal(t, []byte("state-dict-weights"), applied)
}

func TestEnvelopeWithoutKnownKeysIsNotGuessed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint.json")
	writeEnvelope(t, path, map[string][]byte{
		"optimizer": []byte("not-weights"),
	})

	var applied []byte
	err := resolveCheckpoint(path, captureApply(&applied))
	require.Error(t, err)
	assert.Nil(t, applied)

	var loadErr *CheckpointLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, loadErr.Error(), "envelope file")
}

func TestRawPayloadAppliedDirectly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.onnx")
	raw := []byte{0x08, 0x01, 0x12, 0x00, 0xff} // not JSON
	require.NoError(t, os.WriteFile(path, raw, 0644))

	var applied []byte
	require.NoError(t, resolveCheckpoint(path, captureApply(&applied)))
	assert.Equal(t, raw, applied)
}

func TestTarContainerProbesModelThenStateDict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.tar")
	writeTar(t, path, map[string][]byte{
		"model.bin":      []byte("tar-model"),
		"state_dict.bin": []byte("tar-state-dict"),
	})

	var applied []byte
	require.NoError(t, resolveCheckpoint(path, captureApply(&applied)))
	assert.Equal(t, []byte("tar-model"), applied)
}

func TestTarContainerStateDictOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.tar")
	writeTar(t, path, map[string][]byte{
		"nested/state_dict.bin": []byte("tar-state-dict"),
	})

	var applied []byte
	require.NoError(t, resolveCheckpoint(path, captureApply(&applied)))
	assert.Equal(t, []byte("tar-state-dict"), applied)
}

func TestDirectoryFallbackFindsDataFile(t *testing.T) {
	dir := t.TempDir()
	writeEnvelope(t, filepath.Join(dir, dataFileName), map[string][]byte{
		"weights": []byte("dir-weights"),
	})

	var applied []byte
	require.NoError(t, resolveCheckpoint(dir, captureApply(&applied)))
	assert.Equal(t, []byte("dir-weights"), applied)
}

func TestDirectoryFallbackRecursesIntoDataSubdir(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, dataSubdir)
	require.NoError(t, os.MkdirAll(nested, 0755))
	writeEnvelope(t, filepath.Join(nested, dataFileName), map[string][]byte{
		"model": []byte("nested-weights"),
	})

	var applied []byte
	require.NoError(t, resolveCheckpoint(dir, captureApply(&applied)))
	assert.Equal(t, []byte("nested-weights"), applied)
}

func TestSerializedFileProbesWeightsKey(t *testing.T) {
	dir := t.TempDir()
	writeEnvelope(t, filepath.Join(dir, dataFileName), map[string][]byte{
		"model":   []byte("m"),
		"weights": []byte("w"),
	})

	// "model" still wins inside the directory fallback probe order.
	var applied []byte
	require.NoError(t, resolveCheckpoint(dir, captureApply(&applied)))
	assert.Equal(t, []byte("m"), applied)
}

func TestExhaustedCascadeNamesEveryStrategy(t *testing.T) {
	dir := t.TempDir() // empty: nothing loadable anywhere

	err := resolveCheckpoint(dir, captureApply(new([]byte)))
	require.Error(t, err)

	var loadErr *CheckpointLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Len(t, loadErr.Attempts, 4)
	msg := loadErr.Error()
	for _, name := range []string{"tar container", "envelope file", "raw payload", "directory fallback"} {
		assert.Contains(t, msg, name)
	}
}

func TestApplyFailureDoesNotCountAsSuccess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	writeEnvelope(t, path, map[string][]byte{
		"model": []byte("bad-weights"),
	})

	applyErr := errors.New("graph rejected")
	err := resolveCheckpoint(path, func([]byte) error { return applyErr })
	require.Error(t, err)

	var loadErr *CheckpointLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, loadErr.Error(), "graph rejected")
}

func TestMissingPathFailsCleanly(t *testing.T) {
	err := resolveCheckpoint(filepath.Join(t.TempDir(), "nope.ckpt"), captureApply(new([]byte)))
	require.Error(t, err)

	var loadErr *CheckpointLoadError
	assert.ErrorAs(t, err, &loadErr)
}
