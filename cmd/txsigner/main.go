// txsigner 交易签名服务命令行入口
//
// 子命令:
//
//	txsigner sign     使用配置中的签名器签名一笔交易
//	txsigner signers  列出配置的签名器
//	txsigner serve    启动 HTTP 签名服务
//	txsigner config   输出示例配置
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
