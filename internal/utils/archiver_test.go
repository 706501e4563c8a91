package utils

import (
	"archive/zip"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// TestCreateArchive 测试截图打包
func TestCreateArchive(t *testing.T) {
	tempDir := t.TempDir()

	// 准备测试文件: 3个png + 1个应被忽略的txt
	files := []string{"homepage.png", "about.png", "contact.png"}
	for _, name := range files {
		if err := os.WriteFile(filepath.Join(tempDir, name), []byte("fake png data"), 0644); err != nil {
			t.Fatalf("写入测试文件失败: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(tempDir, "notes.txt"), []byte("ignore me"), 0644); err != nil {
		t.Fatalf("写入测试文件失败: %v", err)
	}

	archivePath := filepath.Join(t.TempDir(), "site_screenshots.zip")
	count, err := CreateArchive(tempDir, archivePath)
	if err != nil {
		t.Fatalf("打包失败: %v", err)
	}

	if count != 3 {
		t.Errorf("期望打包3个文件, 实际=%d", count)
	}

	// 读回压缩包验证条目
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		t.Fatalf("打开压缩包失败: %v", err)
	}
	defer reader.Close()

	got := make([]string, 0, len(reader.File))
	for _, f := range reader.File {
		got = append(got, f.Name)
	}
	sort.Strings(got)

	want := []string{"about.png", "contact.png", "homepage.png"}
	if len(got) != len(want) {
		t.Fatalf("压缩包条目数错误: 期望%v, 实际%v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("压缩包条目错误: 期望%s, 实际%s", want[i], got[i])
		}
	}
}

// TestCreateArchiveEmptyDir 测试空目录打包
func TestCreateArchiveEmptyDir(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "empty.zip")
	count, err := CreateArchive(t.TempDir(), archivePath)
	if err != nil {
		t.Fatalf("空目录打包不应失败: %v", err)
	}
	if count != 0 {
		t.Errorf("空目录应打包0个文件, 实际=%d", count)
	}

	// 压缩包文件本身应已生成
	if _, err := os.Stat(archivePath); err != nil {
		t.Errorf("压缩包未生成: %v", err)
	}
}

// TestCreateArchiveMissingDir 测试目录不存在
func TestCreateArchiveMissingDir(t *testing.T) {
	_, err := CreateArchive(filepath.Join(t.TempDir(), "no-such-dir"), filepath.Join(t.TempDir(), "x.zip"))
	if err == nil {
		t.Error("目录不存在时应返回错误")
	}
}
