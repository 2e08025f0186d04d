package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/rollcache/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func Test_Load_Returns_Defaults_When_No_Files(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg, err := config.Load(config.Input{WorkDirOverride: dir, Env: map[string]string{}})
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.PageSize)
	assert.Equal(t, 300, cfg.MaxWindow)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, filepath.Join(dir, "rollc.db"), cfg.DBPathAbs)
	assert.Equal(t, config.Sources{}, cfg.Sources)
}

func Test_Load_Layers_Files_And_Flags_When_All_Present(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	xdg := t.TempDir()

	writeFile(t, filepath.Join(xdg, "rollc", "config.json"), `{
		// global
		"page_size": 20,
		"max_window": 80,
		"log_level": "info",
	}`)
	writeFile(t, filepath.Join(dir, ".rollc.json"), `{"max_window": 60, "db_path": "data/p.db"}`)

	cfg, err := config.Load(config.Input{
		WorkDirOverride:  dir,
		LogLevelOverride: "debug",
		Env:              map[string]string{"XDG_CONFIG_HOME": xdg},
	})
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.PageSize, "from global")
	assert.Equal(t, 60, cfg.MaxWindow, "project beats global")
	assert.Equal(t, "debug", cfg.LogLevel, "flag beats files")
	assert.Equal(t, filepath.Join(dir, "data", "p.db"), cfg.DBPathAbs)
	assert.Equal(t, filepath.Join(xdg, "rollc", "config.json"), cfg.Sources.Global)
	assert.Equal(t, filepath.Join(dir, ".rollc.json"), cfg.Sources.Project)
}

func Test_Load_Uses_Home_Config_When_XDG_Unset(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	home := t.TempDir()

	writeFile(t, filepath.Join(home, ".config", "rollc", "config.json"), `{"page_size": 7, "max_window": 7}`)

	cfg, err := config.Load(config.Input{WorkDirOverride: dir, Env: map[string]string{"HOME": home}})
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.PageSize)
}

func Test_Load_Replaces_Project_File_When_Config_Flag_Given(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, ".rollc.json"), `{"page_size": 10}`)
	writeFile(t, filepath.Join(dir, "custom.json"), `{"page_size": 30}`)

	cfg, err := config.Load(config.Input{WorkDirOverride: dir, ConfigPath: "custom.json", Env: map[string]string{}})
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.PageSize)
	assert.Equal(t, filepath.Join(dir, "custom.json"), cfg.Sources.Project)
}

func Test_Load_Returns_Error_When_Input_Invalid(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		project string
		input   config.Input
		wantErr error
	}{
		{name: "MissingExplicitFile", input: config.Input{ConfigPath: "nope.json"}, wantErr: config.ErrConfigFileNotFound},
		{name: "BrokenJSON", project: `{"page_size": }`, wantErr: config.ErrConfigInvalid},
		{name: "WrongType", project: `{"page_size": "big"}`, wantErr: config.ErrConfigInvalid},
		{name: "EmptyDBPath", project: `{"db_path": ""}`, wantErr: config.ErrDBPathEmpty},
		{name: "ZeroPageSize", project: `{"page_size": 0}`, wantErr: config.ErrInvalidValue},
		{name: "WindowBelowPage", input: config.Input{PageSizeOverride: 50, MaxWindowOverride: 10}, wantErr: config.ErrInvalidValue},
		{name: "UnknownLevel", input: config.Input{LogLevelOverride: "loud"}, wantErr: config.ErrInvalidValue},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			if testCase.project != "" {
				writeFile(t, filepath.Join(dir, ".rollc.json"), testCase.project)
			}

			input := testCase.input
			input.WorkDirOverride = dir
			input.Env = map[string]string{}

			_, err := config.Load(input)
			require.ErrorIs(t, err, testCase.wantErr)
		})
	}
}
