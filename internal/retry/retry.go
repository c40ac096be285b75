package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrorType 出站调用错误分类（封闭枚举，重试策略以此为准）
type ErrorType string

const (
	ErrRateLimited ErrorType = "rate_limited"  // 429
	ErrServer      ErrorType = "server_error"  // 5xx
	ErrAuth        ErrorType = "auth_error"    // 401/403
	ErrNotFound    ErrorType = "not_found"     // 404
	ErrClient      ErrorType = "client_error"  // 其他 4xx
	ErrNetwork     ErrorType = "network_error" // 传输层失败
	ErrSetup       ErrorType = "setup_error"   // 请求构造失败
)

// Config 重试配置
type Config struct {
	MaxRetries   int           // 全局重试预算（限流/网络类）
	InitialDelay time.Duration // 首次退避
	MaxDelay     time.Duration // 退避上限
}

// DefaultConfig 默认重试配置
func DefaultConfig() Config {
	return Config{
		MaxRetries:   4,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
	}
}

// Error 重试耗尽或不可重试时返回的最终错误，附带尝试次数与分类摘要
type Error struct {
	Op       string
	Type     ErrorType
	Attempts int
	Status   int
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s after %d attempt(s): %v", e.Op, e.Type, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s: %s after %d attempt(s): status %d", e.Op, e.Type, e.Attempts, e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

// Executor 出站调用重试执行器，除配置外无持久状态
type Executor struct {
	cfg Config
}

// NewExecutor 创建重试执行器
func NewExecutor(cfg Config) *Executor {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay < cfg.InitialDelay {
		cfg.MaxDelay = cfg.InitialDelay
	}
	return &Executor{cfg: cfg}
}

// Classify 对单次调用结果分类。resty 对 4xx/5xx 返回 resp 而非 err，
// err 非空且无响应时区分网络失败与请求构造失败。
func Classify(resp *resty.Response, err error) ErrorType {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ErrNetwork
		}
		var ne net.Error
		if errors.As(err, &ne) {
			return ErrNetwork
		}
		var ue *url.Error
		if errors.As(err, &ue) {
			return ErrNetwork
		}
		return ErrSetup
	}
	if resp == nil {
		return ErrSetup
	}
	switch code := resp.StatusCode(); {
	case code == 429:
		return ErrRateLimited
	case code >= 500:
		return ErrServer
	case code == 401 || code == 403:
		return ErrAuth
	case code == 404:
		return ErrNotFound
	default:
		return ErrClient
	}
}

// retryBudget 各分类允许的重试次数上限
func (e *Executor) retryBudget(t ErrorType) int {
	switch t {
	case ErrRateLimited, ErrNetwork:
		return e.cfg.MaxRetries
	case ErrServer:
		return minInt(2, e.cfg.MaxRetries)
	case ErrAuth:
		return minInt(1, e.cfg.MaxRetries)
	default: // not_found / client / setup 不重试
		return 0
	}
}

// Do 执行出站调用，按分类与指数退避重试；耗尽后返回 *Error。
// 成功判据：err 为空且状态码 < 400。
func (e *Executor) Do(ctx context.Context, op string, fn func(ctx context.Context) (*resty.Response, error)) (*resty.Response, error) {
	delay := e.cfg.InitialDelay

	var (
		lastErr  error
		lastType ErrorType
		lastCode int
		attempts int
	)

	for {
		attempts++
		resp, err := fn(ctx)
		if err == nil && resp != nil && resp.StatusCode() < 400 {
			return resp, nil
		}

		lastType = Classify(resp, err)
		lastErr = err
		lastCode = 0
		if resp != nil {
			lastCode = resp.StatusCode()
			if lastErr == nil {
				lastErr = fmt.Errorf("unexpected status %d: %s", lastCode, shortBody(resp))
			}
		}

		if attempts-1 >= e.retryBudget(lastType) {
			break
		}

		wait := delay
		if lastType == ErrRateLimited {
			if ra := retryAfter(resp); ra > 0 {
				wait = ra
			}
		}
		if wait > e.cfg.MaxDelay {
			wait = e.cfg.MaxDelay
		}

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, &Error{Op: op, Type: ErrNetwork, Attempts: attempts, Err: ctx.Err()}
		}

		delay = nextDelay(delay, e.cfg.MaxDelay)
	}

	return nil, &Error{Op: op, Type: lastType, Attempts: attempts, Status: lastCode, Err: lastErr}
}

// nextDelay 退避步进：1.5 倍并附加 ±15% 抖动，封顶 max
func nextDelay(cur, max time.Duration) time.Duration {
	factor := 1.5 * (0.85 + 0.3*rand.Float64()) // [1.275, 1.725)
	next := time.Duration(float64(cur) * factor)
	if next > max {
		next = max
	}
	return next
}

// retryAfter 解析 429 响应的 Retry-After 提示（秒）
func retryAfter(resp *resty.Response) time.Duration {
	if resp == nil {
		return 0
	}
	v := resp.Header().Get("Retry-After")
	if v == "" {
		return 0
	}
	sec, err := strconv.Atoi(v)
	if err != nil || sec <= 0 {
		return 0
	}
	return time.Duration(sec) * time.Second
}

func shortBody(resp *resty.Response) string {
	b := resp.Body()
	if len(b) > 200 {
		b = b[:200]
	}
	return string(b)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
