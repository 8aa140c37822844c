package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestWatcherReloadsOnWrite 测试配置文件修改后自动重新加载
func TestWatcherReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("rig:\n  damping: 0.2\n"), 0o644); err != nil {
		t.Fatalf("创建测试配置文件失败: %v", err)
	}

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher() 返回错误: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("rig:\n  damping: 0.6\n"), 0o644); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}

	select {
	case cfg := <-w.Updates:
		if cfg.Rig.Damping != 0.6 {
			t.Errorf("重新加载后 Rig.Damping = %v, 期望 0.6", cfg.Rig.Damping)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("等待配置重新加载超时")
	}
}

// TestWatcherReportsInvalidConfig 测试非法配置通过 Errors 上报
func TestWatcherReportsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatalf("创建测试配置文件失败: %v", err)
	}

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher() 返回错误: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("sim:\n  tick_rate: 0\n"), 0o644); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}

	select {
	case err := <-w.Errors:
		if err == nil {
			t.Error("期望非 nil 错误")
		}
	case cfg := <-w.Updates:
		t.Fatalf("非法配置不应被下发: %+v", cfg)
	case <-time.After(5 * time.Second):
		t.Fatal("等待错误上报超时")
	}
}

// TestWatcherIgnoresOtherFiles 测试同目录下其他文件不触发重新加载
func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatalf("创建测试配置文件失败: %v", err)
	}

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher() 返回错误: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o644); err != nil {
		t.Fatalf("写入其他文件失败: %v", err)
	}

	select {
	case cfg := <-w.Updates:
		t.Fatalf("不应重新加载: %+v", cfg)
	case <-time.After(300 * time.Millisecond):
	}
}

// TestWatcherCloseIsIdempotent 测试重复关闭
func TestWatcherCloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatalf("创建测试配置文件失败: %v", err)
	}
	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher() 返回错误: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() 返回错误: %v", err)
	}
	_ = w.Close()

	if _, ok := <-w.Updates; ok {
		t.Error("关闭后 Updates 应已关闭")
	}
}
