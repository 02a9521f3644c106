// Package router 实现节点的事件循环
//
// 单个任务读取 PeerTransport.Events()，把发现与连接事件交给发现反应器，
// 把入站流交给分发器：单播流进入请求处理，广播流进入操作接收。
// 每条入站流在独立的 goroutine 中处理，事件循环本身从不等待处理器。
package router
