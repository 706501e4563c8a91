package utils

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// CreateArchive 将截图目录中的PNG文件打包为单个zip压缩包
// 压缩包内为扁平结构,条目名即截图文件名(文件名本身已保证唯一)
// 返回: 打包的文件数量
func CreateArchive(screenshotsDir string, archivePath string) (int, error) {
	entries, err := os.ReadDir(screenshotsDir)
	if err != nil {
		return 0, fmt.Errorf("读取截图目录失败: %w", err)
	}

	// 收集待打包的PNG文件
	pngFiles := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".png") {
			continue
		}
		pngFiles = append(pngFiles, entry.Name())
	}

	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return 0, fmt.Errorf("创建压缩包文件失败: %w", err)
	}
	defer archiveFile.Close()

	zipWriter := zip.NewWriter(archiveFile)
	defer zipWriter.Close()

	bar := NewProgressBar(len(pngFiles), "打包截图")

	count := 0
	for _, name := range pngFiles {
		if err := addFileToArchive(zipWriter, filepath.Join(screenshotsDir, name), name); err != nil {
			return count, fmt.Errorf("添加文件到压缩包失败 [%s]: %w", name, err)
		}
		count++
		_ = bar.Add(1)
	}

	if err := zipWriter.Close(); err != nil {
		return count, fmt.Errorf("关闭压缩包失败: %w", err)
	}

	Infof("✅ 压缩包已生成: %s (共 %d 个截图)", archivePath, count)
	return count, nil
}

// addFileToArchive 向zip写入单个文件(Deflate压缩)
func addFileToArchive(zipWriter *zip.Writer, srcPath string, entryName string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	header := &zip.FileHeader{
		Name:   entryName,
		Method: zip.Deflate,
	}

	dst, err := zipWriter.CreateHeader(header)
	if err != nil {
		return err
	}

	_, err = io.Copy(dst, src)
	return err
}
