package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/proofvote/internal/model"
	"github.com/ppiankov/proofvote/internal/store"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	viper.Reset()
	cfgFile = ""
	t.Cleanup(viper.Reset)
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)
	initConfig()

	cfg, err := loadConfig()
	require.NoError(t, err)

	want := model.DefaultConfig()
	assert.Equal(t, want.Verification.Roster(), cfg.Verification.Roster())
	assert.Equal(t, want.Generation.Temperatures, cfg.Generation.Temperatures)
	assert.Equal(t, 30*time.Second, cfg.NLI.Timeout)
	assert.Equal(t, "human", cfg.Stats.QualityPredicate)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("PROOFVOTE_NLI_BASE_URL", "http://nli.internal:9000")
	t.Setenv("PROOFVOTE_VERIFICATION_GRADE_THRESHOLD", "65")
	t.Setenv("OPENROUTER_API_KEY", "sk-or-test")
	t.Setenv("HF_TOKEN", "hf_test")
	initConfig()

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://nli.internal:9000", cfg.NLI.BaseURL)
	assert.Equal(t, 65.0, cfg.Verification.GradeThreshold)
	assert.Equal(t, "sk-or-test", cfg.Generation.APIKey)
	assert.Equal(t, "hf_test", cfg.NLI.Token)

	shown := masked(cfg)
	assert.Equal(t, "****", shown.Generation.APIKey)
	assert.Equal(t, "sk-or-test", cfg.Generation.APIKey)
}

func TestLoadConfig_File(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
verification:
  grade_threshold: 70
  classifiers:
    - id: only
      model: some/nli-model
generation:
  temperatures: [0.2]
`), 0644))
	cfgFile = path
	t.Cleanup(func() { cfgFile = "" })
	initConfig()

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, 70.0, cfg.Verification.GradeThreshold)
	assert.Equal(t, model.Roster{"only"}, cfg.Verification.Roster())
	assert.Equal(t, []float64{0.2}, cfg.Generation.Temperatures)
	assert.Equal(t, "http://localhost:8080", cfg.NLI.BaseURL)
}

func writeRecords(t *testing.T, path string, records ...model.VerificationRecord) {
	t.Helper()
	s, err := store.OpenJSONL(path)
	require.NoError(t, err)
	for _, r := range records {
		require.NoError(t, s.Append(r))
	}
	require.NoError(t, s.Close())
}

func TestStatsCommand(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	first := filepath.Join(dir, "a1.jsonl")
	second := filepath.Join(dir, "a2.jsonl")
	out := filepath.Join(dir, "report.txt")

	record := func(id int, votes []bool, success, human bool) model.VerificationRecord {
		return model.VerificationRecord{
			ID:              id,
			PromptType:      model.PromptZeroShot,
			Classifications: votes,
			Success:         success,
			SuccessHuman:    human,
			Clarity:         4,
			Descriptiveness: 3,
			Redundancy:      0.5,
			Proof:           model.ProofBody{Steps: []string{"a", "b"}},
		}
	}
	writeRecords(t, first,
		record(1, []bool{true, true, false}, true, true),
		record(2, []bool{false, false, true}, false, false),
	)
	writeRecords(t, second,
		record(2, []bool{true, true, true}, true, true),
	)

	rootCmd.SetArgs([]string{"stats", "--attempt1", first, "--attempt2", second, "--out", out})
	t.Cleanup(func() {
		firstPath, secondPath, statsOutput = "", "", ""
		baseline, quality = -1, ""
	})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "F1-score of ensemble model: 1")
	assert.Contains(t, string(data), "F1-score of baseline: 1")
	assert.Contains(t, string(data), "Baseline classifier: prism")
}

func TestStatsCommand_MissingAttempt(t *testing.T) {
	isolate(t)
	rootCmd.SetArgs([]string{"stats", "--attempt1", "a1.jsonl"})
	t.Cleanup(func() {
		firstPath, secondPath = "", ""
		baseline, quality = -1, ""
	})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both attempts are required")
}

func TestLoadConfig_NegativeBaselineIndex(t *testing.T) {
	isolate(t)
	t.Setenv("PROOFVOTE_STATS_BASELINE_INDEX", "-1")
	initConfig()

	_, err := loadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "baseline_index")
}

func TestStatsCommand_NegativeBaselineFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("PROOFVOTE_STATS_BASELINE_INDEX", "-3")
	dir := t.TempDir()
	path := filepath.Join(dir, "a.jsonl")
	writeRecords(t, path, model.VerificationRecord{ID: 1, PromptType: model.PromptZeroShot, Classifications: []bool{true}, Success: true, SuccessHuman: true})

	rootCmd.SetArgs([]string{"stats", "--attempt1", path, "--attempt2", path, "--out", filepath.Join(dir, "r.txt")})
	t.Cleanup(func() {
		firstPath, secondPath, statsOutput = "", "", ""
		baseline, quality = -1, ""
	})
	require.NotPanics(t, func() {
		err := rootCmd.Execute()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "baseline_index")
	})
}

func TestCalibrateCommand_RequiresProblemsFile(t *testing.T) {
	isolate(t)
	rootCmd.SetArgs([]string{"calibrate", filepath.Join(t.TempDir(), "missing.jsonl")})
	t.Cleanup(func() { calibrateBaseline, calibrateOut = -1, "./calibration" })

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read problems")
}
