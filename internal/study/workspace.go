package study

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

type workspace struct {
	jobID string
	dir   string
	inDir string
}

func (s *Service) createWorkspace() (workspace, error) {
	jobID := uuid.NewString()
	ws := s.workspaceFor(jobID)
	if err := os.MkdirAll(ws.inDir, 0o750); err != nil {
		return workspace{}, fmt.Errorf("ジョブ用ディレクトリの作成に失敗しました: %w", err)
	}
	return ws, nil
}

func (s *Service) workspaceFor(jobID string) workspace {
	dir := filepath.Join(s.baseDir, jobID)
	return workspace{
		jobID: jobID,
		dir:   dir,
		inDir: filepath.Join(dir, "in"),
	}
}

func removeDir(dir string) error {
	if dir == "" {
		return nil
	}
	return os.RemoveAll(dir)
}
