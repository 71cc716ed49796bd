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

// gateway-sim 模拟分区化 DocGrid 网关，供本地开发验证客户端引擎：
// 文档按有效键分片，支持手工触发 split 与失败注入
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	hertzslog "github.com/hertz-contrib/logger/slog"

	"docgrid-client/internal/partition"
	"docgrid-client/internal/transport"
)

const pageSize = 10

type gateway struct {
	store *simStore

	mu       sync.Mutex
	injected []injectedFailure // 依次消费的注入失败
}

type injectedFailure struct {
	Status    int `json:"status"`
	SubStatus int `json:"substatus"`
}

func main() {
	addr := flag.String("addr", ":8080", "监听地址")
	flag.Parse()

	levelVar := &slog.LevelVar{}
	levelVar.Set(slog.LevelInfo)
	hlog.SetLogger(hertzslog.NewLogger(hertzslog.WithLevel(levelVar)))

	gw := &gateway{store: newSimStore()}
	gw.seed()

	h := server.Default(server.WithHostPorts(*addr))
	h.GET("/collections/:name", gw.getCollection)
	h.GET("/collections/:name/pkranges", gw.getRanges)
	h.POST("/collections/:name/query", gw.query)
	h.POST("/collections/:name/documents", gw.insert)
	h.POST("/admin/collections/:name/split/:rangeID", gw.split)
	h.POST("/admin/fail", gw.injectFailure)
	h.Spin()
}

// seed 预置示例集合与文档
func (g *gateway) seed() {
	c := g.store.createCollection("orders", "/tenant")
	for i := 0; i < 25; i++ {
		doc, _ := json.Marshal(map[string]interface{}{
			"id":     fmt.Sprintf("order-%d", i),
			"tenant": fmt.Sprintf("tenant-%d", i%5),
			"amount": i * 10,
		})
		g.store.insert(c, fmt.Sprintf("order-%d", i), fmt.Sprintf("tenant-%d", i%5), doc)
	}
}

func (g *gateway) getCollection(c context.Context, ctx *app.RequestContext) {
	coll := g.store.lookup(ctx.Param("name"))
	if coll == nil {
		ctx.JSON(consts.StatusNotFound, map[string]string{"error": "collection not found"})
		return
	}
	ctx.JSON(consts.StatusOK, coll.desc)
}

func (g *gateway) getRanges(c context.Context, ctx *app.RequestContext) {
	coll := g.store.lookup(ctx.Param("name"))
	if coll == nil {
		ctx.JSON(consts.StatusNotFound, map[string]string{"error": "collection not found"})
		return
	}
	g.store.mu.Lock()
	ranges := make([]partition.KeyRange, len(coll.ranges))
	copy(ranges, coll.ranges)
	g.store.mu.Unlock()
	ctx.JSON(consts.StatusOK, map[string]interface{}{"ranges": ranges})
}

func (g *gateway) query(c context.Context, ctx *app.RequestContext) {
	if status, sub, ok := g.takeInjected(); ok {
		ctx.Header(transport.HeaderSubStatus, strconv.Itoa(sub))
		ctx.JSON(status, map[string]string{"error": "injected failure"})
		return
	}

	coll := g.store.lookup(ctx.Param("name"))
	if coll == nil {
		ctx.JSON(consts.StatusNotFound, map[string]string{"error": "collection not found"})
		return
	}

	// 路由：显式分区键优先，其次区间 id
	rangeID := string(ctx.GetHeader(transport.HeaderPartitionKeyRangeID))
	if pk := string(ctx.GetHeader(transport.HeaderPartitionKey)); pk != "" {
		r, ok := g.store.rangeForKey(coll, partition.EffectiveKey(pk))
		if !ok {
			ctx.JSON(consts.StatusNotFound, map[string]string{"error": "no range owns the partition key"})
			return
		}
		rangeID = r.ID
	} else if rangeID != "" {
		if _, ok := g.store.rangeByID(coll, rangeID); !ok {
			ctx.Header(transport.HeaderSubStatus, strconv.Itoa(transport.SubStatusRangeGone))
			ctx.JSON(consts.StatusGone, map[string]string{"error": fmt.Sprintf("range %s is gone", rangeID)})
			return
		}
	} else {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "request carries neither partition key nor range id"})
		return
	}

	offset := 0
	if cont := string(ctx.GetHeader(transport.HeaderContinuation)); cont != "" {
		if _, err := fmt.Sscanf(cont, "offset-%d", &offset); err != nil {
			ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "malformed continuation"})
			return
		}
	}

	docs, next := g.store.page(coll, rangeID, offset, pageSize)
	items := make([]json.RawMessage, 0, len(docs))
	for _, d := range docs {
		items = append(items, d.Body)
	}

	if next >= 0 {
		ctx.Header(transport.HeaderContinuation, fmt.Sprintf("offset-%d", next))
	}
	ctx.Header(transport.HeaderActivityID, string(ctx.GetHeader(transport.HeaderActivityID)))
	ctx.Header(transport.HeaderRequestCharge, "1.0")
	ctx.Header(transport.HeaderItemCount, strconv.Itoa(len(items)))
	metricsMap, _ := json.Marshal(map[string]string{
		rangeID: fmt.Sprintf("totalExecutionTimeInMs=0.5;retrievedDocumentCount=%d", len(items)),
	})
	ctx.Header(transport.HeaderQueryMetrics, string(metricsMap))
	ctx.JSON(consts.StatusOK, map[string]interface{}{"items": items})
}

func (g *gateway) insert(c context.Context, ctx *app.RequestContext) {
	coll := g.store.lookup(ctx.Param("name"))
	if coll == nil {
		ctx.JSON(consts.StatusNotFound, map[string]string{"error": "collection not found"})
		return
	}
	var body struct {
		ID   string          `json:"id"`
		Key  string          `json:"key"`
		Body json.RawMessage `json:"body"`
	}
	if err := json.Unmarshal(ctx.Request.Body(), &body); err != nil || body.ID == "" {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "malformed document"})
		return
	}
	g.store.insert(coll, body.ID, body.Key, body.Body)
	ctx.JSON(consts.StatusOK, map[string]string{"id": body.ID})
}

func (g *gateway) split(c context.Context, ctx *app.RequestContext) {
	coll := g.store.lookup(ctx.Param("name"))
	if coll == nil {
		ctx.JSON(consts.StatusNotFound, map[string]string{"error": "collection not found"})
		return
	}
	if err := g.store.split(coll, ctx.Param("rangeID")); err != nil {
		ctx.JSON(consts.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	hlog.CtxInfof(c, "range %s split on collection %s", ctx.Param("rangeID"), coll.desc.Name)
	ctx.JSON(consts.StatusOK, map[string]string{"status": "split"})
}

func (g *gateway) injectFailure(c context.Context, ctx *app.RequestContext) {
	var f injectedFailure
	if err := json.Unmarshal(ctx.Request.Body(), &f); err != nil || f.Status == 0 {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "malformed failure payload"})
		return
	}
	g.mu.Lock()
	g.injected = append(g.injected, f)
	g.mu.Unlock()
	ctx.JSON(consts.StatusOK, map[string]string{"status": "armed"})
}

func (g *gateway) takeInjected() (status, sub int, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.injected) == 0 {
		return 0, 0, false
	}
	f := g.injected[0]
	g.injected = g.injected[1:]
	return f.Status, f.SubStatus, true
}
