package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shiroemons/go-sbfmus/internal/mus/mocks"
)

func TestSBFFileFinderWithFS_Find(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(*mocks.MockFileSystem)
		want      []string
		wantError error
	}{
		{
			name: "既定のコンテナを先頭に並べる",
			setupMock: func(fs *mocks.MockFileSystem) {
				fs.Files["/game/zzz.sbf"] = nil
				fs.Files["/game/EXP1.sbf"] = nil
				fs.Files["/game/gamemus.sbf"] = nil
				fs.Files["/game/menumus.sbf"] = nil
				fs.Files["/game/aaa.sbf"] = nil
			},
			want: []string{
				"/game/menumus.sbf",
				"/game/gamemus.sbf",
				"/game/EXP1.sbf",
				"/game/aaa.sbf",
				"/game/zzz.sbf",
			},
		},
		{
			name: "大文字小文字を区別しない",
			setupMock: func(fs *mocks.MockFileSystem) {
				fs.Files["/game/MENUMUS.SBF"] = nil
				fs.Files["/game/exp1.sbf"] = nil
			},
			want: []string{"/game/MENUMUS.SBF", "/game/exp1.sbf"},
		},
		{
			name: "存在しない既定コンテナは飛ばす",
			setupMock: func(fs *mocks.MockFileSystem) {
				fs.Files["/game/gamemus.sbf"] = nil
				fs.Files["/game/readme.txt"] = nil
				fs.Dirs["/game/sub.sbf"] = true
			},
			want: []string{"/game/gamemus.sbf"},
		},
		{
			name: ".sbfファイルなし",
			setupMock: func(fs *mocks.MockFileSystem) {
				fs.Files["/game/readme.txt"] = nil
			},
			wantError: ErrNoSBFFiles,
		},
		{
			name:      "ディレクトリが存在しない",
			setupMock: func(fs *mocks.MockFileSystem) {},
			wantError: ErrReadDirectory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := mocks.NewMockFileSystem()
			tt.setupMock(fs)

			got, err := NewSBFFileFinderWithFS(fs).Find("/game")
			if tt.wantError != nil {
				require.ErrorIs(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)
			want := make([]string, len(tt.want))
			for i, p := range tt.want {
				want[i] = filepath.FromSlash(p)
			}
			require.Equal(t, want, got)
		})
	}
}

func TestTrackFilename(t *testing.T) {
	tests := []struct {
		track string
		want  string
	}{
		{"boss", "boss.wav"},
		{"menu", "menu.wav"},
		{"mus1\x00\x00\x00\x00", "mus1_.wav"},
		{"a/b\\c", "a_b_c.wav"},
		{"..", "_.wav"},
		{"", "_.wav"},
		{"\uFFFDtitle", "_title.wav"},
	}
	for _, tt := range tests {
		if got := TrackFilename(tt.track); got != tt.want {
			t.Errorf("TrackFilename(%q) = %q, want %q", tt.track, got, tt.want)
		}
	}
}

func TestPrepareOutputDir(t *testing.T) {
	t.Run("cleanなしでは既存ファイルを残す", func(t *testing.T) {
		fs := mocks.NewMockFileSystem()
		old := filepath.Join("/out", "wav", "old.wav")
		fs.Files[old] = []byte("x")

		dir, err := PrepareOutputDir(fs, "/out", false)
		require.NoError(t, err)
		require.Equal(t, filepath.Join("/out", "wav"), dir)
		require.True(t, fs.Dirs[dir])
		require.True(t, fs.FileExists(old))
	})

	t.Run("cleanでは作り直す", func(t *testing.T) {
		fs := mocks.NewMockFileSystem()
		old := filepath.Join("/out", "wav", "old.wav")
		fs.Files[old] = []byte("x")

		dir, err := PrepareOutputDir(fs, "/out", true)
		require.NoError(t, err)
		require.True(t, fs.Dirs[dir])
		require.False(t, fs.FileExists(old))
		require.Equal(t, []string{dir}, fs.Removed)
	})

	t.Run("作成に失敗", func(t *testing.T) {
		fs := mocks.NewMockFileSystem()
		fs.Error = errors.New("read-only")
		_, err := PrepareOutputDir(fs, "/out", false)
		require.ErrorIs(t, err, ErrCreateDirectory)
	})
}

func TestOSFileSystem(t *testing.T) {
	dir := t.TempDir()
	fs := NewOSFileSystem()

	path := filepath.Join(dir, "a.sbf")
	w, err := fs.Create(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("data"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.True(t, fs.FileExists(path))
	info, err := fs.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(4), info.Size())

	found, err := NewSBFFileFinderWithFS(fs).Find(dir)
	require.NoError(t, err)
	require.Equal(t, []string{path}, found)

	require.NoError(t, fs.Remove(path))
	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)
}
