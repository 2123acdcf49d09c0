package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zhtrans "github.com/go-playground/validator/v10/translations/zh"

	"smart-routine/backend/internal/routine"
	"smart-routine/backend/pkg/response"
)

var (
	validatorOnce sync.Once
	translator    ut.Translator
)

// RegisterValidators 注册排课相关的自定义校验规则与中文错误信息，重复调用无副作用
//   - routine_day：SATURDAY..FRIDAY，大小写不敏感
//   - time_slot：七个固定时间段之一
func RegisterValidators() {
	validatorOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		// 错误信息使用 JSON 字段名
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})

		_ = v.RegisterValidation("routine_day", func(fl validator.FieldLevel) bool {
			_, ok := routine.ParseDay(fl.Field().String())
			return ok
		})
		_ = v.RegisterValidation("time_slot", func(fl validator.FieldLevel) bool {
			return routine.IsKnownTimeSlot(fl.Field().String())
		})

		locale := zh.New()
		trans, _ := ut.New(locale, locale).GetTranslator("zh")
		if err := zhtrans.RegisterDefaultTranslations(v, trans); err != nil {
			return
		}
		registerMessage(v, trans, "routine_day", "{0} 不是有效的星期: {1}")
		registerMessage(v, trans, "time_slot", "{0} 不是可选的时间段: {1}")
		translator = trans
	})
}

func registerMessage(v *validator.Validate, trans ut.Translator, tag, text string) {
	_ = v.RegisterTranslation(tag, trans,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(tag, fe.Field(), fmt.Sprint(fe.Value()))
			return msg
		},
	)
}

// bindError 请求绑定失败时返回 400；校验错误附带中文明细
func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && translator != nil {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fe.Translate(translator))
		}
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", strings.Join(msgs, "; "))
		return
	}
	response.BadRequest(c, 10001, "参数校验失败")
}
