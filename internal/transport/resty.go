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

package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"docgrid-client/internal/partition"
	"docgrid-client/pkg/config"
)

// HTTPDispatcher 基于 resty 的网关派发器
type HTTPDispatcher struct {
	client  *resty.Client
	limiter *rate.Limiter // 可为 nil（不限流）
}

// NewHTTPDispatcher 根据网关配置创建派发器
func NewHTTPDispatcher(cfg config.GatewayConfig) *HTTPDispatcher {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(config.ParseDuration(cfg.Timeout, 30*time.Second)).
		SetHeader("Content-Type", "application/json")
	var limiter *rate.Limiter
	if cfg.QPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.QPS), burst)
	}
	return &HTTPDispatcher{client: client, limiter: limiter}
}

type queryBody struct {
	Query string `json:"query"`
}

type queryResult struct {
	Items []json.RawMessage `json:"items"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Send 派发查询请求；失败以 *Failure 返回以便策略链分类
func (d *HTTPDispatcher) Send(ctx context.Context, req *Request) (*Response, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var out queryResult
	r := d.client.R().
		SetContext(ctx).
		SetHeader(HeaderActivityID, uuid.NewString()).
		SetBody(queryBody{Query: req.QueryText}).
		SetResult(&out)
	for k, v := range req.Headers {
		r.SetHeader(k, v)
	}

	resp, err := r.Post("/collections/" + req.Collection + "/query")
	if err != nil {
		return nil, &Failure{Kind: KindTransient, Message: err.Error()}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, classify(resp)
	}

	result := &Response{
		Items:        out.Items,
		Continuation: resp.Header().Get(HeaderContinuation),
		ActivityID:   resp.Header().Get(HeaderActivityID),
	}
	if v := resp.Header().Get(HeaderRequestCharge); v != "" {
		result.RequestCharge, _ = strconv.ParseFloat(v, 64)
	}
	if v := resp.Header().Get(HeaderQueryMetrics); v != "" {
		// 指标解析失败不致命，仅丢弃诊断增强
		_ = json.Unmarshal([]byte(v), &result.QueryMetrics)
	}
	return result, nil
}

// classify 将网关错误响应映射到失败类别
func classify(resp *resty.Response) *Failure {
	sub, _ := strconv.Atoi(resp.Header().Get(HeaderSubStatus))
	var body errorBody
	_ = json.Unmarshal(resp.Body(), &body)
	msg := body.Error
	if msg == "" {
		msg = resp.Status()
	}

	f := &Failure{StatusCode: resp.StatusCode(), SubStatus: sub, Message: msg}
	switch {
	case resp.StatusCode() == http.StatusGone && sub == SubStatusRangeGone:
		f.Kind = KindRangeGone
	case resp.StatusCode() == http.StatusGone && sub == SubStatusNameCacheStale:
		f.Kind = KindInvalidPartition
	case resp.StatusCode() == http.StatusNotFound:
		f.Kind = KindNotFound
	case resp.StatusCode() == http.StatusBadRequest:
		f.Kind = KindBadRequest
	default:
		f.Kind = KindTransient
	}
	return f
}

// FetchCollection 获取集合描述符原始 JSON（供 metadata.CollectionFetchFunc 适配）
func (d *HTTPDispatcher) FetchCollection(ctx context.Context, name string, out interface{}) error {
	resp, err := d.client.R().
		SetContext(ctx).
		SetResult(out).
		Get("/collections/" + name)
	if err != nil {
		return err
	}
	if resp.StatusCode() == http.StatusNotFound {
		return &Failure{Kind: KindNotFound, StatusCode: http.StatusNotFound, Message: fmt.Sprintf("collection %q not found", name)}
	}
	if resp.StatusCode() != http.StatusOK {
		return classify(resp)
	}
	return nil
}

// FetchRoutingMap 获取集合的全部分区区间（供 metadata.RoutingFetchFunc 适配）
func (d *HTTPDispatcher) FetchRoutingMap(ctx context.Context, collectionRID string) ([]partition.KeyRange, error) {
	var out struct {
		Ranges []partition.KeyRange `json:"ranges"`
	}
	resp, err := d.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/collections/" + collectionRID + "/pkranges")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, classify(resp)
	}
	return out.Ranges, nil
}
