package processor

import (
	"errors"
	"fmt"
)

// 定义基础错误类型
var (
	ErrTextExtractionFailed = errors.New("提取简历文本失败")
	ErrModelScreeningFailed = errors.New("模型筛选失败")
	ErrPersistenceFailed    = errors.New("持久化筛选结果失败")
	ErrDuplicateScreening   = errors.New("重复的筛选请求")
	ErrRescoreInProgress    = errors.New("同一岗位的重评任务正在进行")
)

// ScreeningProcessError 包含详细错误信息的自定义错误
type ScreeningProcessError struct {
	FileName string
	Op       string
	BaseErr  error
	Cause    error
	Detail   string
}

func (e *ScreeningProcessError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, 文件:%s): %s", e.BaseErr, e.Op, e.FileName, e.Detail)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s (操作:%s, 文件:%s): %v", e.BaseErr, e.Op, e.FileName, e.Cause)
	}
	return fmt.Sprintf("%s (操作:%s, 文件:%s)", e.BaseErr, e.Op, e.FileName)
}

// Unwrap 返回底层原因，保留调用方用 errors.As 识别具体错误类型的能力
func (e *ScreeningProcessError) Unwrap() error {
	return e.Cause
}

// Is 实现 errors.Is 接口以支持与基础错误类型比较
func (e *ScreeningProcessError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// 错误构造函数
func NewExtractionProcessError(fileName string, cause error) error {
	return &ScreeningProcessError{
		FileName: fileName,
		Op:       "extract",
		BaseErr:  ErrTextExtractionFailed,
		Cause:    cause,
	}
}

func NewScreeningError(fileName string, cause error) error {
	return &ScreeningProcessError{
		FileName: fileName,
		Op:       "screen",
		BaseErr:  ErrModelScreeningFailed,
		Cause:    cause,
	}
}

func NewPersistenceError(fileName string, cause error) error {
	return &ScreeningProcessError{
		FileName: fileName,
		Op:       "persist",
		BaseErr:  ErrPersistenceFailed,
		Cause:    cause,
	}
}

func NewDuplicateError(fileName, detail string) error {
	return &ScreeningProcessError{
		FileName: fileName,
		Op:       "dedup",
		BaseErr:  ErrDuplicateScreening,
		Detail:   detail,
	}
}
