// Package version 构建版本信息
package version

import (
	"fmt"
	"runtime"
	"time"
)

// 构建时通过 -ldflags "-X github.com/weisyn/txsigner/internal/app/version.Version=..." 注入
var (
	Version   = "0.1.0"
	Commit    = "unknown"
	BuildTime = "unknown"     // RFC3339
	BuildEnv  = "development" // development, testing, production
)

// BuildInfo 构建信息
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	BuildEnv  string `json:"buildEnv"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// GetVersion 获取版本号
func GetVersion() string { return Version }

// GetBuildInfo 获取完整构建信息
func GetBuildInfo() *BuildInfo {
	return &BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		BuildEnv:  BuildEnv,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// GetFullVersion 获取多行版本信息，用于 version 子命令
func GetFullVersion() string {
	info := GetBuildInfo()

	s := fmt.Sprintf("txsigner v%s", info.Version)
	if info.Commit != "unknown" {
		s += fmt.Sprintf(" (%s)", info.Commit)
	}
	if info.BuildTime != "unknown" {
		if t, err := time.Parse(time.RFC3339, info.BuildTime); err == nil {
			s += fmt.Sprintf("\n构建时间: %s", t.UTC().Format("2006-01-02 15:04:05 MST"))
		} else {
			s += fmt.Sprintf("\n构建时间: %s", info.BuildTime)
		}
	}
	s += fmt.Sprintf("\n构建环境: %s", info.BuildEnv)
	s += fmt.Sprintf("\nGo版本: %s", info.GoVersion)
	s += fmt.Sprintf("\n平台: %s", info.Platform)
	return s
}

// IsProductionBuild 判断是否为生产构建
func IsProductionBuild() bool { return BuildEnv == "production" }
