// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}
	cmd := os.Args[1]
	args := os.Args[2:]
	switch cmd {
	case "version":
		fmt.Println("docgrid cli 0.1.0")
	case "query":
		runQuery(args)
	case "ranges":
		if len(args) < 1 {
			fmt.Fprintf(os.Stderr, "Usage: docgrid ranges <collection>\n")
			os.Exit(1)
		}
		runRanges(args[0])
	case "metrics":
		runMetrics()
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`docgrid - DocGrid 查询客户端

Usage:
  docgrid query -collection <name> -q <query> [-pk <key>] [-cross] [-continuation <token>] [-pages <n>]
  docgrid ranges <collection>
  docgrid metrics
  docgrid version

环境变量:
  DOCGRID_GATEWAY_URL  网关地址（默认 http://localhost:8080）
  DOCGRID_CONFIG       配置文件路径（可选）`)
}
