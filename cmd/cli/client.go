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
	"context"
	"flag"
	"fmt"
	"os"

	"docgrid-client/internal/metadata"
	"docgrid-client/internal/partition"
	"docgrid-client/internal/queryexec"
	"docgrid-client/internal/transport"
	"docgrid-client/pkg/config"
	"docgrid-client/pkg/log"
	"docgrid-client/pkg/metrics"
)

func loadConfig() *config.Config {
	if path := os.Getenv("DOCGRID_CONFIG"); path != "" {
		cfg, err := config.LoadConfig(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	cfg := config.DefaultConfig()
	if u := os.Getenv("DOCGRID_GATEWAY_URL"); u != "" {
		cfg.Gateway.BaseURL = u
	}
	return cfg
}

// buildDeps 组装执行上下文的协作者：resty 派发器 + 共享元数据缓存
func buildDeps(cfg *config.Config) (queryexec.Deps, *transport.HTTPDispatcher) {
	logger, err := log.NewLogger(&log.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	dispatcher := transport.NewHTTPDispatcher(cfg.Gateway)

	snapshot, err := metadata.NewSnapshotStore(cfg.Metadata)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化路由快照存储失败: %v\n", err)
		os.Exit(1)
	}
	collections := metadata.NewMemoryCollectionCache(func(ctx context.Context, name string) (*metadata.CollectionDescriptor, error) {
		var desc metadata.CollectionDescriptor
		if err := dispatcher.FetchCollection(ctx, name, &desc); err != nil {
			return nil, err
		}
		return &desc, nil
	})
	routingMap := metadata.NewMemoryRoutingMap(dispatcher.FetchRoutingMap, snapshot)

	return queryexec.Deps{
		Dispatcher:  dispatcher,
		Collections: collections,
		RoutingMap:  routingMap,
		Logger:      logger,
	}, dispatcher
}

func runQuery(args []string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	collection := fs.String("collection", "", "集合名")
	queryText := fs.String("q", "", "查询语句")
	pk := fs.String("pk", "", "精确分区键（绕过区间解析）")
	cross := fs.Bool("cross", false, "允许跨分区查询")
	cont := fs.String("continuation", "", "起始续读令牌")
	pages := fs.Int("pages", 0, "最多取页数，0 为取完")
	_ = fs.Parse(args)

	if *collection == "" || *queryText == "" {
		fmt.Fprintln(os.Stderr, "query 需要 -collection 与 -q")
		os.Exit(1)
	}

	cfg := loadConfig()
	deps, _ := buildDeps(cfg)

	opts := queryexec.Options{
		PartitionKey:           *pk,
		IsContinuationExpected: true,
		Continuation:           *cont,
	}
	if *cross {
		opts.EnableCrossPartition = "true"
	}
	exec := queryexec.NewExecutionContext(*collection, *queryText, opts, deps, cfg.Retry)

	ctx := context.Background()
	fetched := 0
	for {
		page, err := exec.FetchNext(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "查询失败: %v\n", err)
			os.Exit(1)
		}
		for _, item := range page.Items {
			fmt.Println(string(item))
		}
		fetched++
		fmt.Fprintf(os.Stderr, "-- page %d: items=%d charge=%.2f retries=%d\n",
			fetched, len(page.Items), page.Diagnostics.RequestCharge, page.Diagnostics.RetryCount)
		if page.Continuation == "" {
			return
		}
		if *pages > 0 && fetched >= *pages {
			fmt.Fprintf(os.Stderr, "-- continuation: %s\n", page.Continuation)
			return
		}
	}
}

func runRanges(collection string) {
	cfg := loadConfig()
	deps, dispatcher := buildDeps(cfg)
	ctx := context.Background()

	desc, err := deps.Collections.Resolve(ctx, collection)
	if err != nil {
		fmt.Fprintf(os.Stderr, "解析集合失败: %v\n", err)
		os.Exit(1)
	}
	ranges, err := dispatcher.FetchRoutingMap(ctx, desc.ResourceID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取分区区间失败: %v\n", err)
		os.Exit(1)
	}
	partition.SortAscending(ranges)
	fmt.Printf("collection %s (rid %s)\n", desc.Name, desc.ResourceID)
	for _, r := range ranges {
		fmt.Printf("  range %-6s [%s, %s)\n", r.ID, r.MinInclusive, r.MaxExclusive)
	}
}

func runMetrics() {
	if err := metrics.WritePrometheus(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "导出指标失败: %v\n", err)
		os.Exit(1)
	}
}
