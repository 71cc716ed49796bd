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

// Package errors 提供统一错误辅助，不依赖 internal
package errors

import (
	"errors"
	"fmt"
)

// 常用哨兵错误（引擎对调用方可见的终态错误类别）
var (
	ErrNotFound = errors.New("not found")
	// ErrInvalidArg 输入非法（如格式错误的请求头布尔值），不可重试
	ErrInvalidArg = errors.New("invalid argument")
	// ErrRoutingUnresolvable 一次强制刷新后仍无法建立路由映射
	ErrRoutingUnresolvable = errors.New("routing could not be established")
	// ErrRetryExhausted 重试预算耗尽，最后一次底层失败原样附带
	ErrRetryExhausted = errors.New("retry budget exhausted")
)

// Wrap 包装错误并附加消息
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 带格式的 Wrap
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
