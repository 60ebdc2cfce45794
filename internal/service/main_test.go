package service

import (
	"os"
	"testing"

	"docology-go/pkg/log"
)

// TestMain 初始化全局 logger，避免被测代码调用 log 包时空指针
func TestMain(m *testing.M) {
	log.Init("info", "json", "")
	os.Exit(m.Run())
}
