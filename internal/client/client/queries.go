package client

const (
	pingQuery = `query Ping { __typename }`

	loginMutation = `mutation Login($username: String!, $password: String!) {
  login(username: $username, password: $password) { accessToken }
}`

	campaignsQuery = `query Campaigns {
  campaigns { id code name startDate endDate }
}`

	groupsQuery = `query Groups($role: String) {
  groups(filter: {role: $role}) {
    id name deviceId pinCode role
    campaign { id }
    user { id username }
    locations { id }
  }
}`

	locationsQuery = `query Locations {
  locations { id name description barcode parent { id name } }
}`

	articlesQuery = `query Articles($page: Int!, $pageSize: Int!) {
  articles(page: $page, pageSize: $pageSize) {
    page totalPages
    rows {
      id code description serialNumber
      currentLocation { id name }
      locations { id name }
    }
  }
}`

	scansQuery = `query Scans($campaignId: ID!, $groupId: ID!) {
  scans(filter: {campaignId: $campaignId, groupId: $groupId}) {
    id campaignId groupId locationId code articleId description observation
    serialNumber etat capturedAt source latitude longitude
  }
}`

	syncScansMutation = `mutation SyncScans($input: [ScanInput!]!) {
  syncScans(input: $input) { localId success remoteId errors { field messages } }
}`

	syncScanImagesMutation = `mutation SyncScanImages($input: [ScanImagesInput!]!) {
  syncScanImages(input: $input) { localId success remoteId errors { field messages } }
}`
)
