// Package handler 提供HTTP请求处理器
package handler

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/yipai/yipai/pkg/errors"
)

// validate 请求结构体校验器（并发安全，全包共享）
var validate = validator.New()

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError 返回错误响应
func respondError(w http.ResponseWriter, err error) {
	appErr := errors.FromError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.HTTPStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"code":    appErr.Code,
		"message": appErr.Message,
		"details": appErr.Details,
		"fields":  appErr.Fields,
	})
}

// decodeAndValidate 解析请求体并按结构体标签校验
func decodeAndValidate(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败")
	}
	if err := validate.Struct(dst); err != nil {
		appErr := errors.New(errors.CodeInvalidInput, "请求参数校验失败")
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) {
			for _, fe := range verrs {
				appErr = appErr.WithField(strings.ToLower(fe.Field()), fe.Tag())
			}
		}
		return appErr
	}
	return nil
}

// requireMethod 检查请求方法
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持"+method+"方法"))
		return false
	}
	return true
}

// parseUUID 解析UUID字符串
func parseUUID(value, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, errors.CodeInvalidInput, "无效的"+name+"格式")
	}
	return id, nil
}

// queryUUID 从查询参数解析UUID（为空返回nil）
func queryUUID(r *http.Request, key string) (*uuid.UUID, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil, nil
	}
	id, err := parseUUID(value, key)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
