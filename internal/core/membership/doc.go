// Package membership 维护节点与 library 的成员关系
//
// 成员表记录每个已连接节点声明持有的 library，来源是对端对 ListLibraries
// 请求的应答。广播器据此只向同一 library 的成员发送操作，分发器据此拒绝
// 非成员签名的操作。
//
// Refresher 在连接建立时以及周期性地向已连接节点查询成员信息。
package membership
