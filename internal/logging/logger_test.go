package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, DEBUG, lvl)

	lvl, err = ParseLevel("warning")
	require.NoError(t, err)
	assert.Equal(t, WARN, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
	assert.Equal(t, "ERROR", ERROR.String())
}

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitDefaultLogger(Options{Level: DEBUG, Format: "json", Output: &buf}))
	defer CloseDefaultLogger()

	log := GetComponentLogger("test-component")
	log.Info("чанк %d загружен", 7)
	assert.Contains(t, buf.String(), `"component":"test-component"`)
	assert.Contains(t, buf.String(), "чанк 7 загружен")

	t.Run("уровень компонента", func(t *testing.T) {
		buf.Reset()
		require.NoError(t, GetLoggerManager().SetLogLevel("test-component", WARN))
		log.Info("не должно попасть")
		log.Warn("должно попасть")
		assert.NotContains(t, buf.String(), "не должно попасть")
		assert.Contains(t, buf.String(), "должно попасть")
	})

	t.Run("неизвестный компонент", func(t *testing.T) {
		assert.Error(t, GetLoggerManager().SetLogLevel("nope", DEBUG))
	})

	t.Run("поля", func(t *testing.T) {
		buf.Reset()
		log.WithField("chunk", "(1,2)").Error("сбой")
		assert.Contains(t, buf.String(), `"chunk":"(1,2)"`)
	})
}

func TestFileRotation(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer
	require.NoError(t, InitDefaultLogger(Options{Level: INFO, Dir: dir, FileName: "w.log", Output: &console}))
	Info("запись в файл")
	CloseDefaultLogger()

	data, err := os.ReadFile(filepath.Join(dir, "w.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "запись в файл")
	assert.Contains(t, console.String(), "запись в файл")
}
