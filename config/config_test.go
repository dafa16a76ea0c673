package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	c, err := Parse([]string{"data/proxd_valid"})
	require.NoError(t, err)

	assert.Equal(t, "data/proxd_valid", c.Args.DataDir)
	assert.Equal(t, "training/contactformer/model_ckpt/best_model_recon_acc.pt", c.Args.LoadModel)
	assert.Equal(t, "BasementSittingBooth_00142_01", c.Args.SingleSeqName)
	assert.Equal(t, 256, c.Args.MaxFrame)
	assert.Equal(t, 8, c.Args.JumpStep)
	assert.Equal(t, int64(1), c.Args.Seed)
	assert.Equal(t, "proxd", c.Args.Datatype)
	assert.Equal(t, BackendRemote, c.Args.ContactBackend)
	assert.Equal(t, 1024, c.Args.PointsPerBox)
	assert.Equal(t, ModeBatchReport, c.Mode)
	assert.Empty(t, c.Warnings)
	assert.Equal(t, filepath.Join("../test_output", "results.db"), c.ResultsDBPath())
}

func TestParse_Flags(t *testing.T) {
	c, err := Parse([]string{
		"data/humanise",
		"--load_model", "atiss.pt",
		"--datatype", "humanise",
		"--fix_ori",
		"--n_layer", "2",
		"--max_frame", "128",
		"--contact_backend", "local",
		"--results_db", "none",
		"--single_seq_name", "",
	})
	require.NoError(t, err)
	assert.Equal(t, "atiss.pt", c.Args.LoadModel)
	assert.Equal(t, "humanise", c.Args.Datatype)
	assert.True(t, c.Args.FixOri)
	assert.Equal(t, 2, c.Args.NLayer)
	assert.Equal(t, 128, c.Args.MaxFrame)
	assert.Equal(t, BackendLocal, c.Args.ContactBackend)
	assert.Equal(t, "", c.ResultsDBPath())
	assert.Equal(t, "", c.Args.SingleSeqName)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse(nil)
	assert.Error(t, err, "data_dir is required")

	_, err = Parse([]string{"d", "--datatype", "scannet"})
	assert.Error(t, err)

	_, err = Parse([]string{"d", "--contact_backend", "gpu"})
	assert.Error(t, err)

	_, err = Parse([]string{"d", "--f_vert", "0"})
	assert.Error(t, err)

	_, err = Parse([]string{"d", "--test_on_train_set", "--test_on_valid_set"})
	assert.Error(t, err)
}

func TestResolve_Precedence(t *testing.T) {
	tests := []struct {
		name          string
		argv          []string
		mode          RunMode
		visualize     bool
		saveVideo     bool
		warningsCount int
	}{
		{"report", []string{"d"}, ModeBatchReport, false, false, 0},
		{"visualize", []string{"d", "--visualize"}, ModeVisualize, true, false, 0},
		{"save video", []string{"d", "--save_video"}, ModeSaveVideo, false, true, 0},
		{"visualize wins over save video", []string{"d", "--visualize", "--save_video"}, ModeVisualize, true, false, 1},
		{"valid disables visualize", []string{"d", "--test_on_valid_set", "--visualize"}, ModeBatchValid, false, false, 1},
		{"train disables save video", []string{"d", "--test_on_train_set", "--save_video"}, ModeBatchTrain, false, false, 1},
		{"valid with both", []string{"d", "--test_on_valid_set", "--visualize", "--save_video"}, ModeBatchValid, false, false, 2},
		{"train alone", []string{"d", "--test_on_train_set"}, ModeBatchTrain, false, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse(tt.argv)
			require.NoError(t, err)
			assert.Equal(t, tt.mode, c.Mode)
			assert.Equal(t, tt.visualize, c.Visualize)
			assert.Equal(t, tt.saveVideo, c.SaveVideo)
			assert.Len(t, c.Warnings, tt.warningsCount)
		})
	}
}

func TestConfig_ShouldRender(t *testing.T) {
	c, err := Parse([]string{"d", "--visualize", "--single_seq_name", "seqA"})
	require.NoError(t, err)
	assert.True(t, c.ShouldRender("seqA"))
	assert.False(t, c.ShouldRender("seqB"))

	c.Args.SingleSeqName = ""
	assert.True(t, c.ShouldRender("seqB"))

	c, err = Parse([]string{"d", "--single_seq_name", "seqA"})
	require.NoError(t, err)
	assert.False(t, c.ShouldRender("seqA"))
}

func TestConfig_EnsureOutputDir(t *testing.T) {
	out := filepath.Join(t.TempDir(), "a", "b")
	c, err := Parse([]string{"d", "--output_dir", out})
	require.NoError(t, err)

	require.NoError(t, c.EnsureOutputDir())
	require.NoError(t, c.EnsureOutputDir())
	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestConfig_NewRand(t *testing.T) {
	c, err := Parse([]string{"d", "--seed", "42"})
	require.NoError(t, err)
	a, b := c.NewRand(), c.NewRand()
	for i := 0; i < 5; i++ {
		assert.Equal(t, a.Int63(), b.Int63())
	}
}

func TestRunMode_String(t *testing.T) {
	assert.Equal(t, "batch_valid", ModeBatchValid.String())
	assert.Equal(t, "save_video", ModeSaveVideo.String())
	assert.True(t, ModeVisualize.Renders())
	assert.False(t, ModeBatchTrain.Renders())
}
