// Package broadcast 实现同步广播器
//
// 数据层产生的本地操作进入一个有界队列，广播器逐条取出、签名、编码，
// 然后发送给持有同一 library 的已连接节点。单个消费者保证同一生产者的
// 操作按入队顺序发出；每个节点的投递相互独立，失败只记录告警。
//
// 队列满时 Enqueue 阻塞，对生产者形成背压；不希望阻塞的调用方使用
// TryEnqueue，队列满时得到 ErrQueueFull。
//
// 编码失败属于不变量违例：记录错误并计数，PanicOnInvariant 开启时 panic。
package broadcast
