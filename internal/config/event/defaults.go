package event

// defaultEnabled 默认启用事件系统
const defaultEnabled = true
