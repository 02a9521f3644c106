// Package liveness 实现心跳探测
//
// Prober 在启动宽限期后按固定间隔向全部已连接节点广播 Ping，保持连接活跃。
// 接收方无需应答；Tracker 记录每个节点最近一次心跳的时间。
//
// 连续失败（存在已连接节点但全部投递失败）时等待时间按指数增长，
// 上限为 MaxBackoff；一次成功即恢复正常间隔。探测器只在 ctx 取消时退出。
package liveness
