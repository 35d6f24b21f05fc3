package handler

import (
	"github.com/gin-gonic/gin"

	appuser "github.com/xiebiao/supplestore/internal/application/user"
	"github.com/xiebiao/supplestore/internal/interface/http/dto"
	"github.com/xiebiao/supplestore/internal/interface/http/middleware"
	"github.com/xiebiao/supplestore/pkg/response"
)

// UserHandler 账号与收货地址
// Handler只负责解析请求、调用应用层、返回响应
type UserHandler struct {
	registerUseCase *appuser.RegisterUseCase
	loginUseCase    *appuser.LoginUseCase
	logoutUseCase   *appuser.LogoutUseCase
	refreshUseCase  *appuser.RefreshTokenUseCase
	tokenUseCase    *appuser.TokenUseCase
	addressUseCase  *appuser.AddressUseCase
}

// NewUserHandler 创建用户处理器
func NewUserHandler(
	registerUseCase *appuser.RegisterUseCase,
	loginUseCase *appuser.LoginUseCase,
	logoutUseCase *appuser.LogoutUseCase,
	refreshUseCase *appuser.RefreshTokenUseCase,
	tokenUseCase *appuser.TokenUseCase,
	addressUseCase *appuser.AddressUseCase,
) *UserHandler {
	return &UserHandler{
		registerUseCase: registerUseCase,
		loginUseCase:    loginUseCase,
		logoutUseCase:   logoutUseCase,
		refreshUseCase:  refreshUseCase,
		tokenUseCase:    tokenUseCase,
		addressUseCase:  addressUseCase,
	}
}

// Register 用户注册
// @Summary      用户注册
// @Tags         用户
// @Accept       json
// @Produce      json
// @Param        request body dto.RegisterRequest true "注册信息"
// @Success      201 {object} response.Response{data=appuser.UserInfo} "注册成功"
// @Failure      400 {object} response.Response "参数错误"
// @Failure      409 {object} response.Response "邮箱已存在"
// @Router       /api/v1/users/register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	info, err := h.registerUseCase.Execute(c.Request.Context(), appuser.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, info)
}

// Login 用户登录
// @Summary      用户登录
// @Tags         用户
// @Accept       json
// @Produce      json
// @Param        request body dto.LoginRequest true "登录信息"
// @Success      200 {object} response.Response{data=appuser.LoginResponse}
// @Failure      401 {object} response.Response "邮箱或密码错误"
// @Router       /api/v1/users/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.loginUseCase.Execute(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Logout 登出，当前Access Token加入黑名单
// @Summary      登出
// @Tags         用户
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response
// @Router       /api/v1/users/logout [post]
func (h *UserHandler) Logout(c *gin.Context) {
	if err := h.logoutUseCase.Execute(c.Request.Context(), middleware.GetToken(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Refresh 用Refresh Token换新的Access Token
// @Summary      刷新Token
// @Tags         用户
// @Accept       json
// @Produce      json
// @Param        request body dto.RefreshRequest true "Refresh Token"
// @Success      200 {object} response.Response{data=dto.RefreshResponse}
// @Failure      401 {object} response.Response "Token无效"
// @Router       /api/v1/users/refresh [post]
func (h *UserHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	token, err := h.refreshUseCase.Execute(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.RefreshResponse{AccessToken: token})
}

// RequestPasswordReset 申请重置密码
// 无论邮箱是否注册都返回成功
// @Summary      申请重置密码
// @Tags         用户
// @Accept       json
// @Produce      json
// @Param        request body dto.PasswordResetRequest true "邮箱"
// @Success      200 {object} response.Response
// @Router       /api/v1/users/password-reset [post]
func (h *UserHandler) RequestPasswordReset(c *gin.Context) {
	var req dto.PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	if err := h.tokenUseCase.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// ResetPassword 使用重置令牌设置新密码
// @Summary      重置密码
// @Tags         用户
// @Accept       json
// @Produce      json
// @Param        request body dto.PasswordResetConfirmRequest true "令牌与新密码"
// @Success      200 {object} response.Response
// @Failure      400 {object} response.Response "令牌无效或已过期"
// @Router       /api/v1/users/password-reset/confirm [post]
func (h *UserHandler) ResetPassword(c *gin.Context) {
	var req dto.PasswordResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	if err := h.tokenUseCase.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// RequestEmailVerification 给当前用户发送邮箱验证邮件
// @Summary      发送邮箱验证
// @Tags         用户
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response
// @Router       /api/v1/users/verify-email/request [post]
func (h *UserHandler) RequestEmailVerification(c *gin.Context) {
	if err := h.tokenUseCase.RequestEmailVerification(c.Request.Context(), middleware.GetUserID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// VerifyEmail 确认邮箱
// @Summary      确认邮箱
// @Tags         用户
// @Accept       json
// @Produce      json
// @Param        request body dto.VerifyEmailRequest true "令牌"
// @Success      200 {object} response.Response
// @Router       /api/v1/users/verify-email [post]
func (h *UserHandler) VerifyEmail(c *gin.Context) {
	var req dto.VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	if err := h.tokenUseCase.VerifyEmail(c.Request.Context(), req.Token); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// ListAddresses 当前用户的收货地址
// @Summary      收货地址列表
// @Tags         用户
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response{data=[]dto.AddressResponse}
// @Router       /api/v1/addresses [get]
func (h *UserHandler) ListAddresses(c *gin.Context) {
	list, err := h.addressUseCase.List(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToAddressList(list))
}

// CreateAddress 新增收货地址
// @Summary      新增收货地址
// @Tags         用户
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.AddressRequest true "地址"
// @Success      201 {object} response.Response{data=dto.AddressResponse}
// @Router       /api/v1/addresses [post]
func (h *UserHandler) CreateAddress(c *gin.Context) {
	var req dto.AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	addr, err := h.addressUseCase.Create(c.Request.Context(), middleware.GetUserID(c), appuser.AddressRequest{
		FullName:   req.FullName,
		Phone:      req.Phone,
		Line1:      req.Line1,
		Line2:      req.Line2,
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
		Country:    req.Country,
		IsDefault:  req.IsDefault,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToAddressResponse(addr))
}
