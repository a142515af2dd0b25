package services

// DefaultBannedKeywords 审核违禁词表
// 只读配置，进程启动后不再变化；扫描时统一转小写比较
var DefaultBannedKeywords = []string{
	// 欺诈
	"lừa đảo",
	"lừa đảo nhẹ",
	"bịp",
	"scam",
	"fake",
	"làm giả",
	"hàng nhái",
	"không chính chủ",

	// 车辆来源非法
	"xe ăn cắp",
	"xe trộm",
	"xe gian",
	"xe không rõ nguồn gốc",
	"xe không giấy",
	"xe nhập lậu",
	"xe lậu",
	"xe mất giấy",

	// 假证件
	"giấy tờ giả",
	"cavet giả",
	"cà vẹt giả",
	"cavet photo",
	"giấy tờ photo",
	"giấy tờ không đầy đủ",
	"bao hồ sơ",
	"bao giấy tờ",
	"làm hồ sơ",
	"làm cavet",

	// 规避检查
	"không sang tên",
	"không rút hồ sơ",
	"né công an",
	"né đăng ký",
	"khỏi kiểm tra",
	"không cần giấy tờ",
	"bao đăng kiểm",

	// 可疑交易
	"giá rẻ bất ngờ",
	"rẻ bất thường",
	"bán gấp",
	"thanh lý nhanh",
	"giao dịch nhanh",
	"chỉ nhận tiền mặt",
}
