// Package configs 内嵌示例配置
package configs

import _ "embed"

// 示例配置：覆盖三种签名器类型，密钥字段留空，由环境变量或 .env 补齐
//
//go:embed txsigner.example.json
var exampleConfig []byte

// ExampleConfig 返回示例配置内容的副本
func ExampleConfig() []byte {
	return append([]byte(nil), exampleConfig...)
}

// ExampleConfigName 示例配置文件名
const ExampleConfigName = "txsigner.example.json"
