package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// ScreenModulePrefix 筛选模块
	ScreenModulePrefix = "screen"

	// EntityDedupSet 去重集合实体
	EntityDedupSet = "dedup_set"
	// EntityLock 分布式锁实体
	EntityLock = "lock"

	// KeyScreeningDedupSet 已完成筛选的(文件MD5,JD MD5)对集合 (SET)
	// 格式: app:screen:dedup_set
	KeyScreeningDedupSet = AppPrefix + ":" + ScreenModulePrefix + ":" + EntityDedupSet

	// KeyRescoreLock 人才库重评分布式锁 (STRING)
	// 格式: app:screen:lock:{jdMD5}
	KeyRescoreLock = AppPrefix + ":" + ScreenModulePrefix + ":" + EntityLock + ":%s"
)
