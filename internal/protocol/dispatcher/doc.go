// Package dispatcher 实现请求分发器
//
// 入站单播流：读取请求、解码、路由到 SyncTarget、编码应答并写回，每条流恰好
// 得到一个应答或被显式终止。每条流在独立 goroutine 中处理，总并发受信号量限制。
//
//   - 解码失败（协议错误）：重置流
//   - 处理失败且请求有错误变体：写回 Error 应答
//   - 处理失败且请求无错误变体：重置流，不写任何载荷，
//     避免请求方把空载荷误读为 None 应答
//
// 入站广播流：心跳交给存活跟踪器；操作先窥视信封头，丢弃本节点不持有的
// library，再验签、检查成员资格、按操作 ID 去重，最后交给 SyncTarget 应用。
//
// Client 是出站一侧：打开单播流发送请求并读取应答，传输错误按配置重试。
package dispatcher
