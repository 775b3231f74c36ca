// Package apperr 核心逻辑与接入层共用的错误分类
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthRequired 需要登录的写操作没有观看者
	ErrAuthRequired = errors.New("authentication required")
	// ErrPersistence 存储层写入失败
	ErrPersistence = errors.New("persistence failure")
	// ErrMalformedInput 输入非法，未执行写入
	ErrMalformedInput = errors.New("malformed input")
	// ErrNotFound 目标不存在
	ErrNotFound = errors.New("not found")
)

// Persistence 包装存储错误，errors.Is 同时匹配 ErrPersistence 与原因；
// 已分类的错误原样返回
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if Classified(err) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// Malformed 带原因的 ErrMalformedInput
func Malformed(reason string) error {
	return fmt.Errorf("%w: %s", ErrMalformedInput, reason)
}

// NotFound 指明缺失实体的 ErrNotFound
func NotFound(entity, id string) error {
	return fmt.Errorf("%s %q: %w", entity, id, ErrNotFound)
}

// Classified 判断 err 是否已带有分类
func Classified(err error) bool {
	return errors.Is(err, ErrPersistence) ||
		errors.Is(err, ErrAuthRequired) ||
		errors.Is(err, ErrMalformedInput) ||
		errors.Is(err, ErrNotFound)
}
