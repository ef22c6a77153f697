// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

// User-facing strings.
const (
	// ErrorReplyPrefix starts the assistant message recording a failed query.
	ErrorReplyPrefix = "抱歉，处理您的请求时出现错误："

	MsgNetworkError = "网络错误，请稍后重试"

	TitleQueryFailed = "查询失败"
	MsgQueryFailed   = "查询失败"

	TitleLoginOK     = "登录成功"
	MsgWelcomeBack   = "欢迎回来！"
	TitleLoginFailed = "登录失败"
	MsgCheckLogin    = "请检查您的邮箱和密码"
	MsgInvalidEmail  = "请输入有效的邮箱地址"
	MsgShortPassword = "密码至少需要6个字符"

	TitleOrderIDMissing = "请输入订单号"
	MsgOrderIDMissing   = "订单号不能为空"
	TitleOrderOK        = "查询成功"
	MsgOrderLoaded      = "订单信息已加载"
	MsgOrderNotFound    = "订单不存在"
	TitleEmailSent      = "邮件发送成功"
	TitleEmailFailed    = "发送失败"
	MsgEmailFailed      = "发送失败，请稍后重试"
	MsgNoCustomerEmail  = "该订单没有可用的客户邮箱"

	TitleNoAccess       = "无权限"
	MsgNoAccess         = "当前账号无权访问知识库"
	MsgLoginRequired    = "请先登录"
	TitleBadFormat      = "文件格式不支持"
	MsgBadFormat        = "仅支持 TXT、MD、PDF 格式"
	TitleNoFiles        = "请选择文件"
	MsgNoFiles          = "请先选择要上传的文件"
	TitleUploadOK       = "上传成功"
	TitleUploadFailed   = "上传失败"
	TitleReindexOK      = "更新成功"
	MsgReindexOK        = "知识库已成功更新"
	TitleReindexFailed  = "更新失败"
	TitleDeleteOK       = "删除成功"
	TitleDeleteFailed   = "删除失败"
	TitleClearOK        = "清空成功"
	MsgClearOK          = "知识库已清空"
	TitleClearFailed    = "清空失败"
	TitleListFailed     = "加载失败"
	MsgListFailed       = "获取文件列表失败"
)
