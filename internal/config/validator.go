package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ValidationError 配置验证错误
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("配置验证失败 [%s]: %s", e.Field, e.Message)
}

// ValidationErrors 多个验证错误
type ValidationErrors struct {
	Errors []error
}

func (e *ValidationErrors) Error() string {
	msg := "配置验证失败，发现以下问题：\n"
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

// Validate 验证应用配置
//
// 📋 **验证内容**：
// - 结构标签（validator/v10）：必填字段、取值范围、签名器类型枚举
// - 签名器 id 在配置中唯一
// - 每个签名器必须携带与其类型对应的配置块
//
// 后端自身的构造校验（私钥格式、HSM 参数、提供方）在构建时执行，此处不重复。
func Validate(cfg *AppConfig) error {
	if cfg == nil {
		return &ValidationErrors{Errors: []error{&ValidationError{Field: "config", Message: "配置不能为空"}}}
	}

	var errs []error

	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, &ValidationError{
				Field:   fe.Namespace(),
				Message: describeFieldError(fe),
			})
		}
	}

	seen := make(map[string]int, len(cfg.Signers))
	for i, s := range cfg.Signers {
		field := fmt.Sprintf("signers[%d]", i)
		if s.ID != "" {
			if prev, dup := seen[s.ID]; dup {
				errs = append(errs, &ValidationError{
					Field:   field + ".id",
					Message: fmt.Sprintf("签名器 id %q 与 signers[%d] 重复", s.ID, prev),
				})
			} else {
				seen[s.ID] = i
			}
		}
		switch s.Type {
		case "hsm":
			if s.HSM == nil {
				errs = append(errs, &ValidationError{Field: field + ".hsm", Message: "hsm 类型必须配置 hsm 块"})
			}
		case "mpc":
			if s.MPC == nil || s.MPC.Provider == "" {
				errs = append(errs, &ValidationError{Field: field + ".mpc.provider", Message: "mpc 类型必须配置 provider"})
			}
		}
	}

	if len(errs) > 0 {
		return &ValidationErrors{Errors: errs}
	}
	return nil
}

// describeFieldError 将标签错误转换为可读信息
func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "不能为空"
	case "oneof":
		return fmt.Sprintf("取值必须为 [%s] 之一，当前为 %v", fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("必须 >= %s", fe.Param())
	case "lte":
		return fmt.Sprintf("必须 <= %s", fe.Param())
	default:
		return fmt.Sprintf("校验规则 %s 未通过", fe.Tag())
	}
}
