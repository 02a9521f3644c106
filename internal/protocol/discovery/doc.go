// Package discovery 实现发现反应器
//
// 反应器消费传输层的发现事件并决定拨号。每个发现事件都会触发一次拨号，
// 已连接节点的去重由传输层负责。拨号在独立 goroutine 中执行并受速率限制，
// 事件循环从不等待拨号完成。
//
// 节点状态：
//
//	Seen -> Dialing -> Connected
//	Seen -> Dialing -> DialFailed   （下次被发现时重试）
//	Connected -> Disconnected        （下次被发现时重拨）
package discovery
